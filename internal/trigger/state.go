package trigger

import (
	"errors"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// State is a step of one alert attempt.
type State int

// Machine states.
const (
	// Idle waits for the user to press the button.
	Idle State = iota
	// Holding counts down while the button is held.
	Holding
	// Locating waits for the location provider.
	Locating
	// AwaitingConfirmation holds a coordinate until the user confirms.
	AwaitingConfirmation
	// LocationUnavailable offers retry, bypass or cancel.
	LocationUnavailable
	// Dispatching waits for the alert dispatcher.
	Dispatching
	// Sent is terminal: the backend accepted the alert.
	Sent
	// Failed is terminal: the alert could not be delivered.
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Locating:
		return "locating"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case LocationUnavailable:
		return "location_unavailable"
	case Dispatching:
		return "dispatching"
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the attempt is over.
func (s State) IsTerminal() bool {
	return s == Sent || s == Failed
}

// AtRest reports whether a new attempt may start.
func (s State) AtRest() bool {
	return s == Idle || s.IsTerminal()
}

// ErrInvalidTransition is returned when an operation is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Snapshot is the observable state of the machine.
type Snapshot struct {
	// Attempt numbers alert attempts, starting at 1 with the first hold.
	Attempt uint64
	// State is the current state.
	State State
	// Remaining is the countdown value while Holding.
	Remaining int
	// Coordinate is the captured position, nil when none.
	Coordinate *domain.Coordinate
	// LocationFailure is set in LocationUnavailable.
	LocationFailure domain.LocationFailure
	// Err is the location error in LocationUnavailable
	// or a *domain.DispatchError in Failed.
	Err error
}

// Message returns the user-facing text for the snapshot, empty when none applies.
func (s Snapshot) Message() string {
	switch s.State {
	case LocationUnavailable:
		return s.LocationFailure.Message()
	case Failed:
		var dErr *domain.DispatchError
		if errors.As(s.Err, &dErr) {
			return dErr.Message()
		}

		return (&domain.DispatchError{}).Message()
	case Sent:
		return "Alert sent. Your emergency contacts are being notified."
	default:
		return ""
	}
}

// LocationResult is the outcome of one location lookup.
type LocationResult struct {
	// Coordinate is valid when Err is nil.
	Coordinate domain.Coordinate
	// Err is the provider failure.
	Err error
}

// LocationSuccess builds a successful result.
func LocationSuccess(c domain.Coordinate) LocationResult {
	return LocationResult{Coordinate: c}
}

// LocationFailed builds a failed result.
func LocationFailed(err error) LocationResult {
	if err == nil {
		err = domain.NewLocationError(domain.LocationFailureUnknown, nil)
	}

	return LocationResult{Err: err}
}
