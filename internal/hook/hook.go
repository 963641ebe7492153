// Package hook is the attachment point between the host delivery pipeline
// and side-effect consumers like the webhook notifier.
//
// Unlike a fanout bus, hooks run synchronously in the caller's goroutine and
// in registration order: the host pipeline walks the chain for an event and
// continues regardless of what individual hooks do. Hooks must therefore be
// fast and must never panic the caller.
package hook

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	logx "offlinehook/pkg/logx"

	"offlinehook/internal/message"
)

// OfflineMessage fires when the host could not deliver a message because the
// recipient is offline. Hooks observe the message; they do not consume it.
const OfflineMessage = "message.offline"

// Func is a single hook. The message is passed by value; mutating it does
// not affect other hooks or the host pipeline.
type Func func(ctx context.Context, msg message.Message)

type entry struct {
	id uint64
	fn Func
}

// Registry holds named hook chains. The zero value is not usable; use New.
type Registry struct {
	log logx.Logger

	mu    sync.RWMutex
	seq   atomic.Uint64
	hooks map[string][]entry
}

func New(log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{log: log, hooks: map[string][]entry{}}
}

// Register appends fn to the chain for event and returns an unregister
// func. Unregister is idempotent and safe to call while Dispatch runs
// concurrently (in-flight dispatches may still invoke the hook once more).
func (r *Registry) Register(event string, fn Func) func() {
	if fn == nil {
		return func() {}
	}
	id := r.seq.Add(1)

	r.mu.Lock()
	r.hooks[event] = append(r.hooks[event], entry{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(event, id) })
	}
}

func (r *Registry) remove(event string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.hooks[event]
	for i, e := range chain {
		if e.id == id {
			// Keep order: the chain is walked in registration order.
			chain = append(chain[:i], chain[i+1:]...)
			break
		}
	}
	if len(chain) == 0 {
		delete(r.hooks, event)
	} else {
		r.hooks[event] = chain
	}
}

// Dispatch runs the chain for event with msg. A panicking hook is recovered
// and logged; the remaining hooks and the caller are unaffected.
func (r *Registry) Dispatch(ctx context.Context, event string, msg message.Message) {
	// Snapshot under RLock so hooks can (un)register from within a dispatch.
	r.mu.RLock()
	chain := make([]entry, len(r.hooks[event]))
	copy(chain, r.hooks[event])
	r.mu.RUnlock()

	for _, e := range chain {
		r.run(ctx, event, e, msg)
	}
}

func (r *Registry) run(ctx context.Context, event string, e entry, msg message.Message) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("hook panicked",
				logx.String("event", event),
				logx.Uint64("hook_id", e.id),
				logx.Any("panic", p),
			)
		}
	}()
	e.fn(ctx, msg)
}

// Len reports the number of hooks registered for event.
func (r *Registry) Len(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[event])
}

// Events lists event names that currently have hooks, sorted for stable
// logging.
func (r *Registry) Events() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.hooks))
	for ev := range r.hooks {
		out = append(out, ev)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
