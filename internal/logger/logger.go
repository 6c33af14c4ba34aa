// Package logger configures the application-level structured logger used
// by the daemon for its own diagnostics. Core packages (store,
// registry, engine, ports) never log; the supervisor logs only in
// RunForeground, through the logger its caller passes in. Child process output goes
// through internal/logs instead, as plain append-mode files — rotating
// it is out of scope here.
package logger

import (
	"io"
	"log/slog"
)

// Options controls the application logger's verbosity and rendering.
type Options struct {
	Level  slog.Level
	Color  bool // wrap the text handler in ColorTextHandler
	Source bool // include file:line in each record
}

// New builds a slog.Logger writing to w per opts. The hidden
// `daemon run` command uses it, uncolored, on its stderr, which
// DaemonStart redirects to daemon.log.
func New(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.Source}
	var h slog.Handler = slog.NewTextHandler(w, hopts)
	if opts.Color {
		h = NewColorTextHandler(w, hopts, true)
	}
	return slog.New(h)
}
