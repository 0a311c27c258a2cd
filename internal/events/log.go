package events

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-inventory/internal/common"
)

// MemoryLog keeps the most recent events in a fixed size ring.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewMemoryLog returns a log holding up to capacity events.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &MemoryLog{events: make([]Event, capacity)}
}

// Insert appends ev, overwriting the oldest entry when full.
func (l *MemoryLog) Insert(_ context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[l.next] = ev
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Recent returns up to n events, newest first. n <= 0 returns all retained events.
func (l *MemoryLog) Recent(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	size := l.next
	if l.full {
		size = len(l.events)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out
}

// Handler serves the recent event feed. The limit query parameter caps the result.
func (l *MemoryLog) Handler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	common.Data(w, http.StatusOK, l.Recent(limit))
}

// LogNotifier writes every event to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the event at info level.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		RawJSON("payload", ev.Payload).
		Msg("domain event")
	return nil
}
