package trigger

import (
	"context"
	"sync"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// fakeLocator returns scripted results, optionally blocking until released.
type fakeLocator struct {
	mu sync.Mutex
	// results are consumed in order, the last one repeats.
	results []LocationResult
	// calls counts CurrentPosition invocations.
	calls int
	// gate blocks each call until a value is received, nil means no blocking.
	gate chan struct{}
	// active and maxActive track concurrent calls.
	active, maxActive int
}

// CurrentPosition implements LocationProvider.
func (f *fakeLocator) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	f.maxActive = max(f.maxActive, f.active)

	var result LocationResult
	if len(f.results) > 0 {
		result = f.results[0]
		if len(f.results) > 1 {
			f.results = f.results[1:]
		}
	}

	gate := f.gate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Coordinate{}, ctx.Err()
		}
	}

	return result.Coordinate, result.Err
}

// Calls returns the number of lookups so far.
func (f *fakeLocator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// MaxConcurrent returns the highest number of lookups running at once.
func (f *fakeLocator) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.maxActive
}

// fakeDispatcher records every sent location.
type fakeDispatcher struct {
	mu sync.Mutex
	// err is returned by every Send.
	err error
	// sent records the location of every call.
	sent []*domain.Coordinate
	// gate blocks each call until a value is received, nil means no blocking.
	gate chan struct{}
	// active and maxActive track concurrent calls.
	active, maxActive int
}

// Send implements AlertDispatcher.
func (f *fakeDispatcher) Send(ctx context.Context, location *domain.Coordinate) error {
	f.mu.Lock()
	f.sent = append(f.sent, location)
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	err := f.err
	gate := f.gate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

// Sent returns a copy of the recorded locations.
func (f *fakeDispatcher) Sent() []*domain.Coordinate {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*domain.Coordinate(nil), f.sent...)
}

// MaxConcurrent returns the highest number of sends running at once.
func (f *fakeDispatcher) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.maxActive
}

// recorder collects listener snapshots.
type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

// Listen implements Listener.
func (r *recorder) Listen(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, s)
}

// States returns the recorded state sequence.
func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make([]State, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		states = append(states, s.State)
	}

	return states
}

// Remaining returns the countdown values seen while Holding.
func (r *recorder) Remaining() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var values []int

	for _, s := range r.snapshots {
		if s.State == Holding {
			values = append(values, s.Remaining)
		}
	}

	return values
}
