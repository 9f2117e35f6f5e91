package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mmynk/finduo/internal/payday"
)

func TestOutbox(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	_ = o.Dispatch(ctx, 1, payday.KindToday, day)
	_ = o.Dispatch(ctx, 2, payday.KindTomorrow, day)
	_ = o.Dispatch(ctx, 3, payday.KindInDays, day)

	if o.Len() != 2 {
		t.Fatalf("Expected capacity to cap the queue at 2, got %d", o.Len())
	}

	first := o.Drain(1)
	if len(first) != 1 || first[0].UserID != 2 {
		t.Errorf("Expected oldest kept reminder for user 2, got %+v", first)
	}
	rest := o.Drain(0)
	if len(rest) != 1 || rest[0].UserID != 3 || rest[0].Kind != payday.KindInDays {
		t.Errorf("Unexpected remaining reminders %+v", rest)
	}
	if o.Len() != 0 {
		t.Errorf("Expected empty outbox, got %d", o.Len())
	}
}

func TestOutboxReusesStorage(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for i := range 100 {
		_ = o.Dispatch(ctx, int64(i+1), payday.KindToday, day)
		if i%3 == 0 {
			o.Drain(1)
		}
		if c := cap(o.queue); c > 8 {
			t.Fatalf("Expected backing array to stay near capacity 4, got cap %d after %d dispatches", c, i+1)
		}
	}

	got := o.Drain(2)
	if len(got) != 2 || got[0].UserID != 98 || got[1].UserID != 99 {
		t.Errorf("Expected users 98 and 99 first, got %+v", got)
	}
	o.Drain(0)
	if o.queue != nil {
		t.Errorf("Expected a fully drained outbox to release its storage, got cap %d", cap(o.queue))
	}
}
