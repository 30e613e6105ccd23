package button

import (
	"context"
	"sync"

	"github.com/oshokin/sos-button/internal/trigger"
)

// relay decouples the machine listener from a consumer that may block.
// The machine calls the listener from whichever goroutine made the
// transition, including the consumer itself, so delivery must never block it.
type relay struct {
	// deliver receives snapshots in order on the relay goroutine.
	deliver func(trigger.Snapshot)
	// wake signals queued snapshots.
	wake chan struct{}

	mu    sync.Mutex
	queue []trigger.Snapshot
}

func newRelay(deliver func(trigger.Snapshot)) *relay {
	return &relay{
		deliver: deliver,
		wake:    make(chan struct{}, 1),
	}
}

// push queues a snapshot. It is the machine listener.
func (r *relay) push(s trigger.Snapshot) {
	r.mu.Lock()
	r.queue = append(r.queue, s)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// run delivers queued snapshots until ctx is done.
func (r *relay) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}

		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()

		for _, s := range batch {
			r.deliver(s)
		}
	}
}
