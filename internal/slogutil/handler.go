// Package slogutil provides the thymus log handler and logger construction.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Handler writes records as
// TIMESTAMP [level] message | key=value key=value
type Handler struct {
	w        io.Writer
	level    slog.Leveler
	attrs    []slog.Attr
	groups   []string
	omitTime bool
	mu       *sync.Mutex
}

// HandlerOptions extends slog.HandlerOptions with format switches.
type HandlerOptions struct {
	Level slog.Leveler
	// OmitTime drops the timestamp. Used for interactive stderr output.
	OmitTime bool
}

// NewHandler creates a handler writing to w.
func NewHandler(w io.Writer, opts *HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	omit := false
	if opts != nil {
		if opts.Level != nil {
			level = opts.Level
		}
		omit = opts.OmitTime
	}
	return &Handler{w: w, level: level, omitTime: omit, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !h.omitTime && !r.Time.IsZero() {
		buf.WriteString(r.Time.UTC().Format(time.RFC3339))
		buf.WriteByte(' ')
	}
	buf.WriteByte('[')
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = h.appendResolved(attrs, h.groups, a)
		return true
	})

	sep := " | "
	for _, a := range attrs {
		buf.WriteString(sep)
		sep = " "
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		next.attrs = h.appendResolved(next.attrs, h.groups, a)
	}
	return next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(append([]string(nil), h.groups...), name)
	return next
}

func (h *Handler) clone() *Handler {
	return &Handler{
		w:        h.w,
		level:    h.level,
		attrs:    append([]slog.Attr(nil), h.attrs...),
		groups:   h.groups,
		omitTime: h.omitTime,
		mu:       h.mu,
	}
}

// appendResolved flattens group values and prefixes keys with the open
// groups. Empty keys are dropped.
func (h *Handler) appendResolved(dst []slog.Attr, groups []string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		inner := groups
		if a.Key != "" {
			inner = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			dst = h.appendResolved(dst, inner, ga)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	if len(groups) > 0 {
		a.Key = strings.Join(groups, ".") + "." + a.Key
	}
	return append(dst, a)
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
