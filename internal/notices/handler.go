// Package notices turns warning-level log records into user-visible notices.
package notices

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Notice is one user-visible message.
type Notice struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Source  string    `json:"source,omitempty"`
}

// Sink receives notices as they are logged.
type Sink func(Notice)

// Handler wraps a base slog.Handler. Every record goes to base; records at
// or above minLevel also become Notices that are kept in a bounded journal
// and passed to sink.
type Handler struct {
	base     slog.Handler
	minLevel slog.Level
	journal  *Journal
	sink     Sink
	group    string
	attrs    []slog.Attr
}

// NewHandler returns a Handler. journal and sink may be nil.
func NewHandler(base slog.Handler, minLevel slog.Level, journal *Journal, sink Sink) *Handler {
	return &Handler{base: base, minLevel: minLevel, journal: journal, sink: sink}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards to base, then records a notice. The notice is produced
// even if base fails.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if record.Level < h.minLevel || (h.journal == nil && h.sink == nil) {
		return err
	}

	n := Notice{
		At:      record.Time,
		Level:   record.Level.String(),
		Message: stripPrefix(record.Message),
		Detail:  errorDetail(h.attrs, record),
		Source:  h.group,
	}
	if h.journal != nil {
		h.journal.add(n)
	}
	if h.sink != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// stderr, not slog: logging here would re-enter this handler.
					fmt.Fprintf(os.Stderr, "[notices] sink panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.sink(n)
		}()
	}
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.base = h.base.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.base = h.base.WithGroup(name)
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// stripPrefix drops a leading "[WARN-STORE] " style tag.
func stripPrefix(msg string) string {
	if strings.HasPrefix(msg, "[") {
		if end := strings.Index(msg, "] "); end > 0 {
			return msg[end+2:]
		}
	}
	return msg
}

// errorDetail returns the value of the first "error" attribute.
func errorDetail(preset []slog.Attr, record slog.Record) string {
	for _, a := range preset {
		if a.Key == "error" {
			return a.Value.String()
		}
	}
	var detail string
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == "error" {
			detail = a.Value.String()
			return false
		}
		return true
	})
	return detail
}

// Journal keeps the most recent notices.
type Journal struct {
	mu      sync.Mutex
	max     int
	entries []Notice
}

// NewJournal returns a journal holding at most max notices.
func NewJournal(max int) *Journal {
	if max <= 0 {
		max = 1
	}
	return &Journal{max: max}
}

func (j *Journal) add(n Notice) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, n)
	if over := len(j.entries) - j.max; over > 0 {
		j.entries = append(j.entries[:0:0], j.entries[over:]...)
	}
}

// Snapshot returns the retained notices, oldest first.
func (j *Journal) Snapshot() []Notice {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Notice(nil), j.entries...)
}
