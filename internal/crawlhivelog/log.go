// Package crawlhivelog builds the structured logger the worker daemon and
// its supervisor goroutines log through.
package crawlhivelog

import (
	"io"
	"log/slog"
	"os"
)

// Options configures New, mirroring the handful of knobs a crawl
// operator actually needs: level, output format, and source location.
type Options struct {
	// Level sets the minimum logged level. Defaults to slog.LevelInfo.
	Level slog.Level
	// JSON selects a JSON handler for log-aggregator ingestion; false
	// selects a human-readable text handler for local runs.
	JSON bool
	// AddSource annotates each record with its call site.
	AddSource bool
	// Output is where records are written. Defaults to os.Stderr.
	Output io.Writer
}

// New builds a *slog.Logger per opts. A zero Options value produces a
// sensible default: text handler, info level, stderr.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}
	return slog.New(handler)
}
