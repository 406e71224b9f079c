package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/mdmail/internal/email"
	"github.com/shineum/mdmail/internal/provider/stdout"
)

func newInspectCommand(*state) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect file.eml",
		Short: "Print a summary of a stored message",
		Long: `Inspect parses an RFC 5322 message, such as one written by the file
provider, and prints its headers, body and parts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			msg, err := email.Parse(raw)
			if err != nil {
				return err
			}
			return stdout.NewWithWriter(cmd.OutOrStdout()).Send(cmd.Context(), msg)
		},
	}
}
