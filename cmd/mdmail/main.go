// Command mdmail converts Markdown email templates and sends Markdown
// emails through the configured provider.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	root, cleanup := newRootCommand()
	err := root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		slog.Error("mdmail failed", "error", err)
		stop()
		os.Exit(1)
	}
}
