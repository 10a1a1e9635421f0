// Public domain.

// Package mdlog is a compact slog handler for command line output:
//
//	[2006/01/02 15:04:05] [DEBUG] [dataset=a] [seed=7] faked counts
//
// Attributes precede the message, each in brackets.
package mdlog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Handler writes one bracketed line per record.
type Handler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string // group prefix for keys
	mu     *sync.Mutex
	out    io.Writer
}

// NewHandler returns a Handler writing to o at or above opts.Level.  Nil
// opts logs at Info.
func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	h := &Handler{out: o, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// New returns a logger on a Handler at level.
func New(o io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(o, &slog.HandlerOptions{Level: level}))
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) clone() *Handler {
	c := *h
	c.attrs = append([]slog.Attr{}, h.attrs...)
	return &c
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = h.prefix + name + "."
	return c
}

func appendAttr(strs []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return strs
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			strs = appendAttr(strs, p, g)
		}
		return strs
	}
	return append(strs, "["+prefix+a.Key+"="+a.Value.String()+"]")
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	strs := []string{r.Time.Format("[2006/01/02 15:04:05]"), "[" + r.Level.String() + "]"}
	for _, a := range h.attrs {
		strs = appendAttr(strs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		strs = appendAttr(strs, h.prefix, a)
		return true
	})
	strs = append(strs, r.Message)
	b := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(b)
	return err
}
