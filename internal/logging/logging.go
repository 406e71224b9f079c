// Package logging builds the slog handler used by the command line tool.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log level, console format and optional log file.
type Options struct {
	Level  string
	Format string // "text" or "json"
	// File receives JSON logs in addition to the console, rotated by size.
	File string
	// Out is the console destination, defaulting to os.Stderr.
	Out io.Writer
}

// ParseLevel maps a configuration level name to a slog.Level. Unknown
// names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns the handler described by opts and a closer for the
// log file, if any.
func NewHandler(opts Options) (slog.Handler, io.Closer) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	level := ParseLevel(opts.Level)

	var console slog.Handler
	if opts.Format == "json" {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		console = tint.NewHandler(out, &tint.Options{
			Level: level,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if _, ok := attr.Value.Any().(error); attr.Key == "error" || ok {
					return tint.Attr(9, attr)
				}
				return attr
			},
			TimeFormat: time.RFC3339,
			NoColor:    !logColors(out),
		})
	}

	if opts.File == "" {
		return console, nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		Compress:   true,
	}
	return slogmulti.Fanout(
		console,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	), file
}

// Setup installs the handler as the slog default. The returned closer
// flushes and closes the log file.
func Setup(opts Options) io.Closer {
	handler, closer := NewHandler(opts)
	slog.SetDefault(slog.New(handler))
	return closer
}

func logColors(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	if !isatty.IsTerminal(f.Fd()) {
		return false
	}

	return os.Getenv("TERM") != "dumb"
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
