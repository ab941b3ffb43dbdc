// Package frame holds the one-shot dirty token that drives redraws.
//
// Producers on any goroutine Set new parameters; the render loop Takes them
// once per tick. Only the most recent parameters survive, and each Set is
// observed by exactly one Take.
package frame

import "sync/atomic"

// State is the scheduler's view of the loop.
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	if s == Drawing {
		return "drawing"
	}
	return "idle"
}

// Token is a last-write-wins mailbox of pending parameters.
type Token[T any] struct {
	pending atomic.Pointer[T]
	drawing atomic.Bool
}

// Set replaces any pending parameters.
func (t *Token[T]) Set(v T) {
	t.pending.Store(&v)
}

// Take returns the pending parameters and clears them. The token is cleared
// before the caller draws, so a Set racing the draw schedules another tick.
func (t *Token[T]) Take() (T, bool) {
	p := t.pending.Swap(nil)
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Pending reports whether parameters are waiting.
func (t *Token[T]) Pending() bool {
	return t.pending.Load() != nil
}

// Begin marks a draw as in progress.
func (t *Token[T]) Begin() {
	t.drawing.Store(true)
}

// End marks the draw finished.
func (t *Token[T]) End() {
	t.drawing.Store(false)
}

// State reports whether a draw is in progress.
func (t *Token[T]) State() State {
	if t.drawing.Load() {
		return Drawing
	}
	return Idle
}
