// Package toast keeps short-lived user notifications.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a toast stays visible unless dismissed.
const DefaultTTL = 3 * time.Second

// Type tags a toast for rendering.
type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Info    Type = "info"
)

// Toast is one notification.
type Toast struct {
	ID        string
	Message   string
	Type      Type
	CreatedAt time.Time
}

// Queue holds the visible toasts. Each toast expires on its own timer;
// identical messages are not merged.
type Queue struct {
	ttl time.Duration

	mu     sync.Mutex
	toasts []Toast
	timers map[string]*time.Timer
	closed bool
}

// NewQueue creates a queue whose toasts live for ttl (DefaultTTL if <= 0).
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{ttl: ttl, timers: make(map[string]*time.Timer)}
}

// Show enqueues msg and returns its id. An empty type means Success.
func (q *Queue) Show(msg string, typ Type) string {
	if typ == "" {
		typ = Success
	}
	id := uuid.NewString()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return id
	}
	q.toasts = append(q.toasts, Toast{ID: id, Message: msg, Type: typ, CreatedAt: time.Now()})
	q.timers[id] = time.AfterFunc(q.ttl, func() { q.remove(id) })
	return id
}

// Dismiss removes a toast before it expires. Unknown ids are ignored.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
	}
	q.removeLocked(id)
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
}

func (q *Queue) removeLocked(id string) {
	delete(q.timers, id)
	for i, t := range q.toasts {
		if t.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			return
		}
	}
}

// List returns the visible toasts, oldest first.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Toast, len(q.toasts))
	copy(out, q.toasts)
	return out
}

// Len returns the number of visible toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}

// Close stops every pending timer and drops the toasts.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.timers {
		t.Stop()
	}
	q.timers = make(map[string]*time.Timer)
	q.toasts = nil
	q.closed = true
}
