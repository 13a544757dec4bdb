package service

import (
	"fmt"
	"sync"
	"time"

	"mycontroller/domain"
)

// statusLogCapacity keeps the operator-facing history short; older entries fall off.
const statusLogCapacity = 10

// statusLog is a fixed-capacity, newest-first ring of recent lifecycle events. The
// LifecycleManager records launches, failures and teardowns here and the session list
// endpoint serves the ring, so a browser refresh shows what the controller just did.
type statusLog struct {
	mu      sync.Mutex
	entries []domain.StatusEvent
}

// Record prepends a formatted event, dropping the oldest entry once the ring is full.
func (l *statusLog) Record(at time.Time, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := domain.StatusEvent{At: at, Message: fmt.Sprintf(format, args...)}
	l.entries = append([]domain.StatusEvent{entry}, l.entries...)
	if len(l.entries) > statusLogCapacity {
		l.entries = l.entries[:statusLogCapacity]
	}
}

// Recent returns a copy of the ring, newest first.
func (l *statusLog) Recent() []domain.StatusEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.StatusEvent, len(l.entries))
	copy(out, l.entries)
	return out
}
