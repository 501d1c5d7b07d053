// Package logger builds the slog loggers used by the CLI and server.
//
// The default logger writes slog's text format with ANSI colors: warnings in
// yellow, errors in red, and output-producing messages ("wrote", "exported")
// in green so they stand out in long conversion runs.
package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// highlightWords mark info messages that report produced output.
var highlightWords = []string{"wrote", "exported", "written", "vectorized"}

// Options configures New.
type Options struct {
	Level slog.Leveler
	// Format is "text" (default) or "json".
	Format string
	// Color enables ANSI colors for the text format.
	Color bool
}

// NewDefaultLogger returns a colored text logger writing to stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return New(os.Stderr, Options{Level: level, Color: true})
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	if !opts.Color {
		return slog.New(slog.NewTextHandler(w, hopts))
	}
	return slog.New(NewColorHandler(w, hopts))
}

// ColorHandler renders records with slog's text handler and wraps each line
// in a level-dependent color.
type ColorHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	buf   *bytes.Buffer
	inner slog.Handler
}

// NewColorHandler creates a ColorHandler writing to w.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	buf := &bytes.Buffer{}
	return &ColorHandler{
		mu:    &sync.Mutex{},
		out:   w,
		buf:   buf,
		inner: slog.NewTextHandler(buf, opts),
	}
}

// Enabled implements slog.Handler
func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	line := bytes.TrimRight(h.buf.Bytes(), "\n")

	color := colorFor(r)
	if color == "" {
		_, err := h.out.Write(append(line, '\n'))
		return err
	}
	_, err := io.WriteString(h.out, color+string(line)+colorReset+"\n")
	return err
}

// WithAttrs implements slog.Handler
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{mu: h.mu, out: h.out, buf: h.buf, inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{mu: h.mu, out: h.out, buf: h.buf, inner: h.inner.WithGroup(name)}
}

func colorFor(r slog.Record) string {
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	}
	msg := strings.ToLower(r.Message)
	for _, w := range highlightWords {
		if strings.Contains(msg, w) {
			return colorGreen
		}
	}
	return ""
}
