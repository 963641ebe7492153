package hook

import (
	"context"
	"sync"
	"testing"

	logx "offlinehook/pkg/logx"

	"offlinehook/internal/message"
)

func TestDispatchOrder(t *testing.T) {
	t.Parallel()
	r := New(logx.Nop())

	var got []string
	r.Register(OfflineMessage, func(_ context.Context, _ message.Message) { got = append(got, "a") })
	r.Register(OfflineMessage, func(_ context.Context, _ message.Message) { got = append(got, "b") })
	r.Register(OfflineMessage, func(_ context.Context, _ message.Message) { got = append(got, "c") })

	r.Dispatch(context.Background(), OfflineMessage, message.Message{})

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("dispatch order = %v, want [a b c]", got)
	}
}

func TestUnregister(t *testing.T) {
	t.Parallel()
	r := New(logx.Nop())

	var got []string
	r.Register(OfflineMessage, func(_ context.Context, _ message.Message) { got = append(got, "keep") })
	un := r.Register(OfflineMessage, func(_ context.Context, _ message.Message) { got = append(got, "gone") })

	un()
	un() // idempotent

	r.Dispatch(context.Background(), OfflineMessage, message.Message{})
	if len(got) != 1 || got[0] != "keep" {
		t.Fatalf("after unregister got %v, want [keep]", got)
	}
	if n := r.Len(OfflineMessage); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
}

func TestUnregisterLastRemovesEvent(t *testing.T) {
	t.Parallel()
	r := New(logx.Nop())
	un := r.Register("x", func(_ context.Context, _ message.Message) {})
	un()
	if evs := r.Events(); len(evs) != 0 {
		t.Fatalf("Events = %v, want empty", evs)
	}
}

func TestPanicIsolation(t *testing.T) {
	t.Parallel()
	r := New(logx.Nop())

	var ran bool
	r.Register(OfflineMessage, func(_ context.Context, _ message.Message) { panic("boom") })
	r.Register(OfflineMessage, func(_ context.Context, _ message.Message) { ran = true })

	// Must not panic the caller and must keep walking the chain.
	r.Dispatch(context.Background(), OfflineMessage, message.Message{})
	if !ran {
		t.Fatal("hook after the panicking one did not run")
	}
}

func TestConcurrentDispatch(t *testing.T) {
	t.Parallel()
	r := New(logx.Nop())

	var mu sync.Mutex
	count := 0
	r.Register(OfflineMessage, func(_ context.Context, _ message.Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Dispatch(context.Background(), OfflineMessage, message.Message{})
		}()
	}
	wg.Wait()

	if count != 16 {
		t.Fatalf("count = %d, want 16", count)
	}
}
