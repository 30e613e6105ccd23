package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
)

// LocationProvider looks up the current position once.
// Implementations own their timeout and report it as a Timeout failure.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (domain.Coordinate, error)
}

// AlertDispatcher delivers one alert to the backend.
// A nil location means the position is unknown.
type AlertDispatcher interface {
	Send(ctx context.Context, location *domain.Coordinate) error
}

// Listener receives a snapshot after every transition and countdown tick.
// It is called outside the machine lock and may call back into the machine.
type Listener func(Snapshot)

const (
	// DefaultHoldTicks is the countdown length.
	DefaultHoldTicks = 3
	// DefaultTickInterval is the countdown step.
	DefaultTickInterval = time.Second
)

var (
	// ErrStaleResult is returned when a collaborator result no longer matches the state.
	ErrStaleResult = errors.New("stale result discarded")
	// ErrClosed is returned by operations on a closed machine.
	ErrClosed = errors.New("machine is closed")
	// ErrCallInFlight is returned when a result is reported while the machine's
	// own collaborator call is still running; that call owns the outcome.
	ErrCallInFlight = errors.New("collaborator call in flight")

	errLocatorRequired    = errors.New("location provider is required")
	errDispatcherRequired = errors.New("alert dispatcher is required")
)

// Machine drives one SOS trigger: press-and-hold, location lookup, confirmation and dispatch.
//
// All transitions are serialized by mu. Asynchronous collaborator calls carry the
// token that was current when they started and are discarded if it changed.
type Machine struct {
	// locator obtains the position after the countdown.
	locator LocationProvider
	// dispatcher delivers the alert.
	dispatcher AlertDispatcher
	// listener is notified about every transition, may be nil.
	listener Listener
	// holdTicks is the countdown length.
	holdTicks int
	// tickInterval is the countdown step.
	tickInterval time.Duration

	// ctx is passed to collaborators and cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	// mu protects everything below.
	mu sync.Mutex
	// state is the current state.
	state State
	// attempt counts alert attempts.
	attempt uint64
	// token identifies the pending timer or collaborator call.
	token uint64
	// remaining is the countdown value.
	remaining int
	// timer is the pending countdown tick.
	timer *time.Timer
	// coordinate is the position captured in this attempt.
	coordinate *domain.Coordinate
	// failure is the classified location failure.
	failure domain.LocationFailure
	// err is the last collaborator error.
	err error
	// closed is set by Close.
	closed bool
	// locating is set while a CurrentPosition call runs.
	locating bool
	// dispatching is set while a Send call runs.
	dispatching bool
	// pending holds snapshots not yet delivered to the listener.
	pending []Snapshot
	// draining is set while a goroutine delivers pending snapshots.
	draining bool
}

// Option configures the machine.
type Option func(*Machine)

// WithListener sets the transition listener.
func WithListener(l Listener) Option {
	return func(m *Machine) {
		m.listener = l
	}
}

// WithHoldTicks sets the countdown length.
func WithHoldTicks(ticks int) Option {
	return func(m *Machine) {
		if ticks > 0 {
			m.holdTicks = ticks
		}
	}
}

// WithTickInterval sets the countdown step.
func WithTickInterval(interval time.Duration) Option {
	return func(m *Machine) {
		if interval > 0 {
			m.tickInterval = interval
		}
	}
}

// New creates an idle machine over the provided collaborators.
func New(ctx context.Context, locator LocationProvider, dispatcher AlertDispatcher, opts ...Option) (*Machine, error) {
	if locator == nil {
		return nil, errLocatorRequired
	}

	if dispatcher == nil {
		return nil, errDispatcherRequired
	}

	ctx, cancel := context.WithCancel(logger.WithName(ctx, "trigger"))

	m := &Machine{
		locator:      locator,
		dispatcher:   dispatcher,
		holdTicks:    DefaultHoldTicks,
		tickInterval: DefaultTickInterval,
		ctx:          ctx,
		cancel:       cancel,
		state:        Idle,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Snapshot returns the current observable state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

// BeginHold starts the countdown. It is accepted only at rest:
// in Idle, or in Sent and Failed where it starts a new independent attempt.
func (m *Machine) BeginHold() error {
	return m.apply("begin hold", func() error {
		if !m.state.AtRest() {
			return m.rejectLocked("begin hold")
		}

		m.attempt++
		m.coordinate = nil
		m.failure = domain.LocationFailureUnknown
		m.err = nil
		m.remaining = m.holdTicks
		m.setStateLocked(Holding)
		m.scheduleTickLocked()

		return nil
	})
}

// EndHold releases the button. Before the countdown completes it cancels the
// attempt; afterwards, or when nothing is held, it does nothing.
func (m *Machine) EndHold() error {
	return m.apply("end hold", func() error {
		if m.state != Holding {
			return nil
		}

		m.stopTimerLocked()
		m.remaining = 0
		m.setStateLocked(Idle)

		return nil
	})
}

// Confirm dispatches the alert with the captured coordinate.
func (m *Machine) Confirm() error {
	return m.apply("confirm", func() error {
		if m.state != AwaitingConfirmation {
			return m.rejectLocked("confirm")
		}

		m.setStateLocked(Dispatching)
		m.dispatchLocked(m.coordinate)

		return nil
	})
}

// SendWithoutLocation dispatches the alert with no coordinate.
func (m *Machine) SendWithoutLocation() error {
	return m.apply("send without location", func() error {
		if m.state != LocationUnavailable {
			return m.rejectLocked("send without location")
		}

		m.coordinate = nil
		m.setStateLocked(Dispatching)
		m.dispatchLocked(nil)

		return nil
	})
}

// RetryLocation asks the provider again. Retries are not limited.
func (m *Machine) RetryLocation() error {
	return m.apply("retry location", func() error {
		if m.state != LocationUnavailable {
			return m.rejectLocked("retry location")
		}

		m.failure = domain.LocationFailureUnknown
		m.err = nil
		m.setStateLocked(Locating)
		m.locateLocked()

		return nil
	})
}

// Cancel abandons the attempt and discards the captured coordinate.
func (m *Machine) Cancel() error {
	return m.apply("cancel", func() error {
		if m.state != AwaitingConfirmation && m.state != LocationUnavailable {
			return m.rejectLocked("cancel")
		}

		m.token++
		m.coordinate = nil
		m.failure = domain.LocationFailureUnknown
		m.err = nil
		m.setStateLocked(Idle)

		return nil
	})
}

// OnLocationResult applies a location outcome. It is discarded with
// ErrStaleResult unless the machine is Locating, and with ErrCallInFlight
// while the provider call started by the machine has not returned.
func (m *Machine) OnLocationResult(result LocationResult) error {
	return m.apply("location result", func() error {
		if m.locating {
			return ErrCallInFlight
		}

		return m.applyLocationLocked(m.token, result)
	})
}

// OnDispatchResult applies a dispatch outcome. It is discarded with
// ErrStaleResult unless the machine is Dispatching, and with ErrCallInFlight
// while the dispatcher call started by the machine has not returned.
func (m *Machine) OnDispatchResult(err error) error {
	return m.apply("dispatch result", func() error {
		if m.dispatching {
			return ErrCallInFlight
		}

		return m.applyDispatchLocked(m.token, err)
	})
}

// Close stops the countdown and cancels in-flight collaborator calls.
// Their results are discarded.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true
	m.stopTimerLocked()
	m.token++
	m.cancel()
}

// apply runs fn under the lock and then delivers queued snapshots.
func (m *Machine) apply(op string, fn func() error) error {
	m.mu.Lock()

	var err error
	if m.closed {
		err = ErrClosed
	} else {
		err = fn()
	}

	m.mu.Unlock()
	m.flush()

	if err != nil {
		logger.DebugKV(m.ctx, "Operation ignored", "operation", op, "error", err)
	}

	return err
}

// rejectLocked builds the error for an operation not allowed in the current state.
func (m *Machine) rejectLocked(op string) error {
	return fmt.Errorf("%s in state %s: %w", op, m.state, ErrInvalidTransition)
}

// setStateLocked moves to next and queues a snapshot.
func (m *Machine) setStateLocked(next State) {
	prev := m.state
	m.state = next

	if prev != next {
		logger.InfoKV(m.ctx, "State changed", "attempt", m.attempt, "from", prev.String(), "to", next.String())
	}

	m.publishLocked()
}

// scheduleTickLocked arms the next countdown tick.
func (m *Machine) scheduleTickLocked() {
	m.token++
	token := m.token

	m.timer = time.AfterFunc(m.tickInterval, func() {
		m.tick(token)
	})
}

// stopTimerLocked cancels the pending tick and invalidates it if it already fired.
func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	m.token++
}

// tick advances the countdown.
func (m *Machine) tick(token uint64) {
	m.mu.Lock()

	if m.closed || m.state != Holding || token != m.token {
		m.mu.Unlock()
		return
	}

	m.remaining--
	if m.remaining > 0 {
		m.scheduleTickLocked()
		m.publishLocked()
	} else {
		m.timer = nil
		m.onCountdownCompleteLocked()
	}

	m.mu.Unlock()
	m.flush()
}

// onCountdownCompleteLocked starts the single location lookup of the hold.
func (m *Machine) onCountdownCompleteLocked() {
	m.setStateLocked(Locating)
	m.locateLocked()
}

// locateLocked starts an asynchronous location lookup.
// Only Locating starts one and only its own result leaves Locating,
// so at most one lookup runs at a time.
func (m *Machine) locateLocked() {
	m.token++
	token := m.token
	m.locating = true

	go func() {
		coordinate, err := m.locator.CurrentPosition(m.ctx)

		result := LocationSuccess(coordinate)
		if err != nil {
			result = LocationFailed(err)
		}

		m.mu.Lock()
		m.locating = false
		if !m.closed {
			if applyErr := m.applyLocationLocked(token, result); applyErr != nil {
				logger.DebugKV(m.ctx, "Location result discarded", "attempt", m.attempt, "state", m.state.String())
			}
		}
		m.mu.Unlock()
		m.flush()
	}()
}

// applyLocationLocked consumes a location result issued under token.
func (m *Machine) applyLocationLocked(token uint64, result LocationResult) error {
	if m.state != Locating || token != m.token {
		return ErrStaleResult
	}

	m.token++

	err := result.Err
	if err == nil {
		if vErr := result.Coordinate.Validate(); vErr != nil {
			err = domain.NewLocationError(domain.LocationFailurePositionUnavailable, vErr)
		}
	}

	if err != nil {
		m.coordinate = nil
		m.failure = domain.ClassifyLocationError(err)
		m.err = err
		logger.WarnKV(m.ctx, "Location unavailable", "attempt", m.attempt, "reason", m.failure.String(), "error", err)
		m.setStateLocked(LocationUnavailable)

		return nil
	}

	m.coordinate = result.Coordinate.Ptr()
	m.failure = domain.LocationFailureUnknown
	m.err = nil
	m.setStateLocked(AwaitingConfirmation)

	return nil
}

// dispatchLocked starts an asynchronous dispatch of location.
func (m *Machine) dispatchLocked(location *domain.Coordinate) {
	m.token++
	token := m.token

	var payload *domain.Coordinate
	if location != nil {
		payload = location.Ptr()
	}

	m.dispatching = true

	go func() {
		err := m.dispatcher.Send(m.ctx, payload)

		m.mu.Lock()
		m.dispatching = false
		if !m.closed {
			if applyErr := m.applyDispatchLocked(token, err); applyErr != nil {
				logger.DebugKV(m.ctx, "Dispatch result discarded", "attempt", m.attempt, "state", m.state.String())
			}
		}
		m.mu.Unlock()
		m.flush()
	}()
}

// applyDispatchLocked consumes a dispatch result issued under token.
// A failed dispatch is terminal and never retried here.
func (m *Machine) applyDispatchLocked(token uint64, err error) error {
	if m.state != Dispatching || token != m.token {
		return ErrStaleResult
	}

	m.token++

	if err != nil {
		var dErr *domain.DispatchError
		if !errors.As(err, &dErr) {
			err = &domain.DispatchError{Err: err}
		}

		m.err = err
		logger.ErrorKV(m.ctx, "Alert dispatch failed", "attempt", m.attempt, "error", err)
		m.setStateLocked(Failed)

		return nil
	}

	m.err = nil
	m.setStateLocked(Sent)

	return nil
}

// snapshotLocked copies the observable state.
func (m *Machine) snapshotLocked() Snapshot {
	var coordinate *domain.Coordinate
	if m.coordinate != nil {
		coordinate = m.coordinate.Ptr()
	}

	s := Snapshot{
		Attempt:    m.attempt,
		State:      m.state,
		Remaining:  m.remaining,
		Coordinate: coordinate,
		Err:        m.err,
	}

	if m.state == LocationUnavailable {
		s.LocationFailure = m.failure
	}

	return s
}

// publishLocked queues a snapshot for the listener.
func (m *Machine) publishLocked() {
	if m.listener == nil {
		return
	}

	m.pending = append(m.pending, m.snapshotLocked())
}

// flush delivers queued snapshots in order. Only one goroutine drains at a
// time; snapshots queued by re-entrant calls are picked up by the same loop.
func (m *Machine) flush() {
	m.mu.Lock()

	if m.draining || len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}

	m.draining = true

	for len(m.pending) > 0 {
		batch := m.pending
		m.pending = nil

		m.mu.Unlock()

		for _, s := range batch {
			m.listener(s)
		}

		m.mu.Lock()
	}

	m.draining = false
	m.mu.Unlock()
}
