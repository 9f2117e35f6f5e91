// Package notify holds payday reminders until the transport bridge collects them.
package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mmynk/finduo/internal/payday"
)

// DefaultCapacity is the number of reminders kept when none is configured.
const DefaultCapacity = 1000

// Notification is one reminder waiting for delivery.
type Notification struct {
	UserID    int64
	Kind      payday.ReminderKind
	Date      time.Time
	CreatedAt time.Time
}

// Outbox is a bounded in-memory queue of reminders. When full, the oldest
// reminder is dropped.
type Outbox struct {
	mu       sync.Mutex
	queue    []Notification
	capacity int
	logger   *slog.Logger
}

var _ payday.Notifier = (*Outbox)(nil)

// NewOutbox creates an Outbox holding at most capacity reminders.
func NewOutbox(capacity int, logger *slog.Logger) *Outbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{capacity: capacity, logger: logger}
}

// Dispatch queues a reminder.
func (o *Outbox) Dispatch(ctx context.Context, userID int64, kind payday.ReminderKind, date time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.queue) >= o.capacity {
		dropped := o.queue[0]
		o.queue = slices.Delete(o.queue, 0, 1)
		o.logger.Warn("outbox full, dropping oldest reminder", "user_id", dropped.UserID)
	}
	o.queue = append(o.queue, Notification{
		UserID:    userID,
		Kind:      kind,
		Date:      date,
		CreatedAt: time.Now(),
	})
	o.logger.Info("payday reminder queued",
		"user_id", userID,
		"kind", kind,
		"date", date.Format(time.DateOnly),
	)
	return nil
}

// Drain removes and returns up to limit reminders in the order they were
// queued. A limit of zero or less drains everything.
func (o *Outbox) Drain(limit int) []Notification {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(o.queue)
	if limit > 0 && limit < n {
		n = limit
	}
	out := slices.Clone(o.queue[:n])
	if n == len(o.queue) {
		o.queue = nil
	} else {
		o.queue = slices.Delete(o.queue, 0, n)
	}
	return out
}

// Len returns the number of queued reminders.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}
