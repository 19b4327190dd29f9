// Package lookahead bridges short runs of failed observations in an indexed
// stream. When an observation misses, a bounded number of upcoming items are
// probed; the first hit is queued once per bridged item so those items are
// answered from the queue without probing them again.
//
// Nothing here knows about images: any per-item detector with transient
// failures can be wrapped.
package lookahead

import (
	"context"
	"errors"
	"fmt"
)

// ErrOutOfOrder is returned when items are not consumed one by one in
// increasing index order. The queue is only meaningful under that contract.
var ErrOutOfOrder = errors.New("lookahead: items must be consumed in increasing order without gaps")

// Probe observes item i. ok is false on a miss; err is reserved for failures
// that must abort the caller.
type Probe[T any] func(ctx context.Context, i int) (v T, ok bool, err error)

// Outcome says how Next produced its answer.
type Outcome int

const (
	// Cached: served from the queue filled by an earlier scan.
	Cached Outcome = iota
	// Observed: the item's own probe hit.
	Observed
	// Bridged: the item missed and a later item within the window hit.
	Bridged
	// Missed: the item and every probed item in the window missed.
	Missed
)

func (o Outcome) String() string {
	switch o {
	case Cached:
		return "cached"
	case Observed:
		return "observed"
	case Bridged:
		return "bridged"
	case Missed:
		return "missed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Bridge is the queue plus its bounded forward scan. It is not safe for
// concurrent use; one Bridge belongs to one pass over a stream.
type Bridge[T any] struct {
	probe  Probe[T]
	window int
	queue  []T
	next   int
	begun  bool
}

// New returns a bridge that looks at most window items ahead of a miss,
// counting the missed item itself. A window below 2 disables bridging.
func New[T any](window int, probe Probe[T]) *Bridge[T] {
	if window < 0 {
		window = 0
	}
	return &Bridge[T]{probe: probe, window: window}
}

// Window is the configured maximum miss tolerance.
func (b *Bridge[T]) Window() int { return b.window }

// Pending is the number of queued answers for upcoming items.
func (b *Bridge[T]) Pending() int { return len(b.queue) }

// Next answers item i of a stream with n items.
func (b *Bridge[T]) Next(ctx context.Context, i, n int) (T, Outcome, error) {
	var zero T
	if b.begun && i != b.next {
		return zero, Missed, fmt.Errorf("got item %d, expected %d: %w", i, b.next, ErrOutOfOrder)
	}
	b.begun = true
	b.next = i + 1

	if len(b.queue) > 0 {
		v := b.queue[0]
		b.queue = b.queue[1:]
		return v, Cached, nil
	}

	v, ok, err := b.probe(ctx, i)
	if err != nil {
		return zero, Missed, err
	}
	if ok {
		return v, Observed, nil
	}

	// Offset 0 is the item that just missed; scan the rest of the window.
	for j := 1; j < b.window && i+j < n; j++ {
		if err := ctx.Err(); err != nil {
			return zero, Missed, err
		}
		v, ok, err := b.probe(ctx, i+j)
		if err != nil {
			return zero, Missed, err
		}
		if !ok {
			continue
		}
		// One answer per skipped item; the current item takes v directly.
		for k := 0; k < j; k++ {
			b.queue = append(b.queue, v)
		}
		return v, Bridged, nil
	}
	return zero, Missed, nil
}

// Reset drops queued answers and the ordering state.
func (b *Bridge[T]) Reset() {
	b.queue = b.queue[:0]
	b.begun = false
	b.next = 0
}
