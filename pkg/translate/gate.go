package translate

import (
	"context"
	"sync"
	"time"
)

// DefaultSpacing is the minimum gap between outbound remote calls.
const DefaultSpacing = 500 * time.Millisecond

// Gate enforces a process-wide minimum spacing between remote calls. One call
// runs at a time; the next one starts no earlier than spacing after the
// previous call finished.
type Gate struct {
	spacing time.Duration
	slot    chan struct{}
	now     func() time.Time

	mu    sync.Mutex
	last  time.Time
	calls int64
}

// NewGate returns a Gate with the given spacing. A negative spacing is
// treated as zero.
func NewGate(spacing time.Duration) *Gate {
	if spacing < 0 {
		spacing = 0
	}
	return &Gate{
		spacing: spacing,
		slot:    make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Spacing returns the configured spacing.
func (g *Gate) Spacing() time.Duration { return g.spacing }

// Last returns when the most recent remote call finished, or the zero time.
func (g *Gate) Last() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Calls returns how many calls have passed through the gate.
func (g *Gate) Calls() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Do waits for the spacing window and then runs fn. It returns ctx.Err() if
// ctx ends while waiting; fn is not called in that case.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.slot }()
	if err := ctx.Err(); err != nil {
		return err
	}

	if wait := g.remaining(); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	err := fn(ctx)

	g.mu.Lock()
	g.last = g.now()
	g.mu.Unlock()
	return err
}

func (g *Gate) remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return 0
	}
	return g.last.Add(g.spacing).Sub(g.now())
}
