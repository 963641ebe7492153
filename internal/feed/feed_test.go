package feed

import (
	"context"
	"strings"
	"sync"
	"testing"

	logx "offlinehook/pkg/logx"

	"offlinehook/internal/hook"
	"offlinehook/internal/message"
)

func collect(reg *hook.Registry) (*sync.Mutex, *[]message.Message) {
	var mu sync.Mutex
	var got []message.Message
	reg.Register(hook.OfflineMessage, func(_ context.Context, m message.Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	return &mu, &got
}

func TestPumpDispatchesRecords(t *testing.T) {
	t.Parallel()
	reg := hook.New(logx.Nop())
	_, got := collect(reg)

	in := strings.Join([]string{
		`{"from":"alice@example.com","to":"bob@example.com","message_id":"123","body":"hi","type":"chat"}`,
		`{"from":"carol","to":"dave@x","message_id":"124","body":"yo","type":"groupchat"}`,
	}, "\n")

	if err := Pump(context.Background(), strings.NewReader(in), reg, logx.Nop()); err != nil {
		t.Fatalf("Pump error: %v", err)
	}

	msgs := *got
	if len(msgs) != 2 {
		t.Fatalf("dispatched %d messages, want 2", len(msgs))
	}
	if msgs[0].From.User != "alice" || msgs[0].From.Domain != "example.com" {
		t.Fatalf("from = %+v", msgs[0].From)
	}
	if msgs[0].ID != "123" || msgs[0].Body != "hi" || msgs[0].Type != message.TypeChat {
		t.Fatalf("msg[0] = %+v", msgs[0])
	}
	if msgs[1].From.Domain != "" || msgs[1].Type != message.TypeGroupChat {
		t.Fatalf("msg[1] = %+v", msgs[1])
	}
}

func TestPumpSkipsMalformedAndBlankLines(t *testing.T) {
	t.Parallel()
	reg := hook.New(logx.Nop())
	_, got := collect(reg)

	in := "not json\n\n" +
		`{"from":"a@x","to":"b@x","message_id":"1","body":"ok","type":"chat"}` + "\n" +
		"{\"truncated\":\n"

	if err := Pump(context.Background(), strings.NewReader(in), reg, logx.Nop()); err != nil {
		t.Fatalf("Pump error: %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(*got))
	}
}

func TestPumpSurvivesOversizedLine(t *testing.T) {
	t.Parallel()
	reg := hook.New(logx.Nop())
	_, got := collect(reg)

	// One runaway line well past the limit, then a normal record. The pump
	// must skip the former and still deliver the latter.
	big := `{"from":"a@x","to":"b@x","message_id":"huge","body":"` +
		strings.Repeat("x", 2<<20) + `","type":"chat"}`
	in := big + "\n" +
		`{"from":"alice@example.com","to":"bob@example.com","message_id":"123","body":"hi","type":"chat"}` + "\n"

	if err := Pump(context.Background(), strings.NewReader(in), reg, logx.Nop()); err != nil {
		t.Fatalf("Pump error: %v", err)
	}

	msgs := *got
	if len(msgs) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(msgs))
	}
	if msgs[0].ID != "123" {
		t.Fatalf("msg = %+v, want the record after the oversized line", msgs[0])
	}
}

func TestPumpStopsOnCancel(t *testing.T) {
	t.Parallel()
	reg := hook.New(logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := `{"from":"a@x","to":"b@x","message_id":"1","body":"hi","type":"chat"}` + "\n" +
		`{"from":"a@x","to":"b@x","message_id":"2","body":"hi","type":"chat"}`
	err := Pump(ctx, strings.NewReader(in), reg, logx.Nop())
	if err == nil {
		t.Fatal("expected context error")
	}
}
