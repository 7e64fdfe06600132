package plugin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// callLog records hook invocations in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) hook(name string) Hook {
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls = append(l.calls, name)
		return nil
	}
}

func (l *callLog) failing(name string, err error) Hook {
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls = append(l.calls, name)
		return err
	}
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.list() {
		if c == name {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

// desc builds a minimal valid descriptor.
func desc(id string, deps ...string) *Descriptor {
	return &Descriptor{
		ID:           id,
		Name:         id,
		Version:      "1.0.0",
		Dependencies: Requires(deps...),
	}
}

func mustRegister(t *testing.T, r *Registry, ds ...*Descriptor) {
	t.Helper()
	for _, d := range ds {
		require.NoError(t, r.Register(d))
	}
}

func ids(plugins []Plugin) []string {
	out := make([]string, len(plugins))
	for i, p := range plugins {
		out[i] = p.ID()
	}
	return out
}

func tabIDs(tabs []Tab) []string {
	out := make([]string, len(tabs))
	for i, t := range tabs {
		out[i] = t.ID
	}
	return out
}

// changeRecorder is an Observer collecting changes.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (c *changeRecorder) Observe(_ context.Context, change Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, change)
}

func (c *changeRecorder) kinds() []ChangeKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChangeKind, len(c.changes))
	for i, ch := range c.changes {
		out[i] = ch.Kind
	}
	return out
}
