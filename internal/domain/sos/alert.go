package sos

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidCoordinate is returned for out-of-range or NaN coordinates.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrAlertIDRequired is returned when an alert has no identifier.
	ErrAlertIDRequired = errors.New("alert id is required")
)

// Coordinate is a geographic position captured for an alert.
type Coordinate struct {
	// Latitude in degrees, [-90, 90].
	Latitude float64
	// Longitude in degrees, [-180, 180].
	Longitude float64
}

// Validate reports whether the coordinate lies on the globe.
func (c Coordinate) Validate() error {
	switch {
	case math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude):
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinate)
	case c.Latitude < -90 || c.Latitude > 90:
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Latitude)
	case c.Longitude < -180 || c.Longitude > 180:
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Longitude)
	}

	return nil
}

// String renders the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Ptr returns a pointer to a copy of the coordinate.
func (c Coordinate) Ptr() *Coordinate {
	return &c
}

// Reporter identifies who raised an alert.
type Reporter struct {
	// Hostname is the machine name the alert was raised on.
	Hostname string
	// Username is the system user who raised the alert.
	Username string
}

// Clone returns a deep copy of the reporter.
func (r *Reporter) Clone() *Reporter {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}

// String renders the reporter as user@host.
func (r *Reporter) String() string {
	if r == nil {
		return "unknown"
	}

	return r.Username + "@" + r.Hostname
}

// Alert is the payload delivered to the backend for one SOS attempt.
type Alert struct {
	// ID identifies the attempt; the backend deduplicates on it.
	ID string
	// ReportedAt is when the trigger dispatched the alert.
	ReportedAt time.Time
	// ReceivedAt is set by the backend when it journals the alert.
	ReceivedAt time.Time
	// Reporter is who raised the alert.
	Reporter *Reporter
	// Location is nil when the position is unknown.
	Location *Coordinate
}

// Validate checks the fields the backend relies on.
func (a *Alert) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrAlertIDRequired
	}

	if a.Location != nil {
		return a.Location.Validate()
	}

	return nil
}

// Clone returns a copy of the alert to avoid leaking internal references.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	var location *Coordinate
	if a.Location != nil {
		location = a.Location.Ptr()
	}

	return &Alert{
		ID:         a.ID,
		ReportedAt: a.ReportedAt,
		ReceivedAt: a.ReceivedAt,
		Reporter:   a.Reporter.Clone(),
		Location:   location,
	}
}

// LocationText renders the location for humans.
func (a *Alert) LocationText() string {
	if a.Location == nil {
		return "location unknown"
	}

	return a.Location.String()
}

// Receipt is the backend acknowledgement of an alert.
type Receipt struct {
	// AlertID echoes the acknowledged alert.
	AlertID string
	// ReceivedAt is when the backend first journaled the alert.
	ReceivedAt time.Time
	// Duplicate is true when the alert had already been received.
	Duplicate bool
}
