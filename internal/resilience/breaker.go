package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOpenCircuit is returned while the breaker refuses calls.
var ErrOpenCircuit = errors.New("resilience: circuit open")

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker trips once the failure ratio over at least MinCalls outcomes
// reaches Ratio, then rejects calls for Cooldown before allowing one probe.
type Breaker struct {
	Target   string
	MinCalls int
	Ratio    float64
	Cooldown time.Duration
	Logger   zerolog.Logger
	Now      func() time.Time

	mu       sync.Mutex
	state    State
	failed   int
	total    int
	openedAt time.Time
}

// NewBreaker returns a closed breaker for target.
func NewBreaker(target string, minCalls int, ratio float64, cooldown time.Duration) *Breaker {
	b := &Breaker{Target: strings.TrimSpace(target), MinCalls: minCalls, Ratio: ratio, Cooldown: cooldown, Logger: zerolog.Nop()}
	if b.Target == "" {
		b.Target = "default"
	}
	if b.MinCalls <= 0 {
		b.MinCalls = 5
	}
	if b.Ratio <= 0 || b.Ratio > 1 {
		b.Ratio = 0.5
	}
	if b.Cooldown <= 0 {
		b.Cooldown = 30 * time.Second
	}
	observeState(b.Target, Closed)
	return b
}

func (b *Breaker) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// State reports the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// has elapsed moves to half-open and admits a single probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.Cooldown {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
		return true
	case HalfOpen:
		return false
	}
	return true
}

// Report records the outcome of an admitted call.
func (b *Breaker) Report(ctx context.Context, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		return
	case HalfOpen:
		if ok {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}
	b.total++
	if !ok {
		b.failed++
	}
	if b.total < b.MinCalls {
		return
	}
	if float64(b.failed)/float64(b.total) >= b.Ratio {
		b.moveLocked(ctx, Open)
		return
	}
	if b.total >= b.MinCalls*2 {
		b.total /= 2
		b.failed /= 2
	}
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	b.state = next
	b.failed, b.total = 0, 0
	if next == Open {
		b.openedAt = b.now()
	}
	observeState(b.Target, next)
	observeTransition(b.Target, prev, next)

	logger := b.Logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	logger.Info().Str("target", b.Target).Str("from_state", prev.String()).Str("to_state", next.String()).Msg("breaker_transition")
}

// Backoff returns base doubled per attempt, spread by +/- jitter (0.2 is 20%).
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base << uint(attempt-1)
	if jitter <= 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * jitter * float64(d)
	return d + time.Duration(spread)
}
