// Package transcript captures structured log records of a sync run as
// transcript events for the operator surface.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// StageKey is the attribute that names the pipeline stage of a record.
const StageKey = "stage"

// Collector is a slog.Handler that keeps every enabled record in memory.
// Handlers derived through WithAttrs and WithGroup share the same event list.
type Collector struct {
	store  *eventStore
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

type eventStore struct {
	mu     sync.Mutex
	events []model.Event
}

// NewCollector creates a Collector that records events at or above level.
func NewCollector(level slog.Leveler) *Collector {
	return &Collector{store: &eventStore{}, level: level}
}

// Enabled reports whether records at l are collected.
func (c *Collector) Enabled(_ context.Context, l slog.Level) bool {
	return l >= c.level.Level()
}

// Handle converts r into a transcript event.
func (c *Collector) Handle(_ context.Context, r slog.Record) error {
	ev := model.Event{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
	}

	var pairs, details []string
	add := func(prefix string, a slog.Attr) {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			return
		}
		if prefix+a.Key == StageKey {
			ev.Stage = a.Value.String()
			return
		}
		flatten(prefix, a, &pairs, &details)
	}

	// Bound attrs already carry their group prefix.
	for _, a := range c.attrs {
		add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(c.prefix, a)
		return true
	})

	ev.Attrs = strings.Join(pairs, " ")
	ev.Detail = strings.Join(details, "\n")

	c.store.mu.Lock()
	c.store.events = append(c.store.events, ev)
	c.store.mu.Unlock()

	return nil
}

// WithAttrs returns a Collector that adds attrs to every record.
func (c *Collector) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return c
	}
	next := *c
	next.attrs = make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	next.attrs = append(next.attrs, c.attrs...)
	for _, a := range attrs {
		a.Key = c.prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup returns a Collector that qualifies later attribute keys with name.
func (c *Collector) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	next := *c
	next.prefix = c.prefix + name + "."
	return &next
}

// Events returns a copy of the events collected so far.
func (c *Collector) Events() []model.Event {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := make([]model.Event, len(c.store.events))
	copy(out, c.store.events)
	return out
}

// flatten renders a as key=value, expanding groups and moving multi-line
// values into details.
func flatten(prefix string, a slog.Attr, pairs, details *[]string) {
	key := prefix + a.Key
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			ga.Value = ga.Value.Resolve()
			flatten(key+".", ga, pairs, details)
		}
		return
	}

	s := a.Value.String()
	if strings.Contains(s, "\n") {
		*details = append(*details, fmt.Sprintf("%s:\n%s", key, s))
		return
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		s = strconv.Quote(s)
	}
	*pairs = append(*pairs, key+"="+s)
}
