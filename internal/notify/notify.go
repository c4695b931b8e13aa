// Package notify carries transient, user-facing notifications (toasts) from
// background work to whoever renders them.
package notify

import (
	"context"
	"sync"
	"time"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Notification struct {
	Variant   Variant   `json:"variant"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Info and Error build the two notification variants.
func Info(message string) Notification {
	return Notification{Variant: VariantDefault, Message: message}
}

func Error(message string) Notification {
	return Notification{Variant: VariantDestructive, Message: message}
}

const defaultQueueLimit = 20

// Queue buffers notifications for one session until they are drained. The
// oldest entries are dropped once the limit is reached.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	return &Queue{limit: limit}
}

func (q *Queue) Notify(_ context.Context, n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if over := len(q.items) - q.limit; over > 0 {
		q.items = q.items[over:]
	}
}

// Drain returns and forgets every queued notification.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
