package location

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// Provider looks up the current position once.
type Provider interface {
	CurrentPosition(ctx context.Context) (domain.Coordinate, error)
}

var (
	// errNoProvider is the cause reported by Unavailable.
	errNoProvider = errors.New("no location provider configured")
	// errUnknownProvider is returned by New for an unsupported kind.
	errUnknownProvider = errors.New("unknown location provider")
)

// Static reports a fixed position, for installations that never move.
type Static struct {
	coordinate domain.Coordinate
}

// NewStatic validates c and returns a provider that always reports it.
func NewStatic(c domain.Coordinate) (*Static, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("static location: %w", err)
	}

	return &Static{coordinate: c}, nil
}

// CurrentPosition returns the configured coordinate.
func (s *Static) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, domain.NewLocationError(domain.ClassifyLocationError(err), err)
	}

	return s.coordinate, nil
}

// Unavailable always fails, so the user is offered to send without a location.
type Unavailable struct{}

// CurrentPosition reports PositionUnavailable.
func (Unavailable) CurrentPosition(context.Context) (domain.Coordinate, error) {
	return domain.Coordinate{}, domain.NewLocationError(domain.LocationFailurePositionUnavailable, errNoProvider)
}
