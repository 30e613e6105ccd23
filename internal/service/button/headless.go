package button

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/trigger"
)

var (
	// ErrAlertNotSent is returned when the attempt ends in Failed.
	ErrAlertNotSent = errors.New("alert not sent")
	// ErrLocationRequired is returned when the position is unknown and
	// sending without it was not allowed.
	ErrLocationRequired = errors.New("location unavailable")
)

// controls is the part of trigger.Machine the front ends drive.
type controls interface {
	BeginHold() error
	EndHold() error
	Confirm() error
	SendWithoutLocation() error
	RetryLocation() error
	Cancel() error
}

// runHeadless performs one attempt without user interaction: the hold runs to
// completion, a captured location is confirmed, and an unknown location is
// either bypassed or reported, depending on allowNoLocation.
func runHeadless(ctx context.Context, ctl controls, updates <-chan trigger.Snapshot, allowNoLocation bool) error {
	if err := ctl.BeginHold(); err != nil {
		return fmt.Errorf("begin hold: %w", err)
	}

	for {
		var s trigger.Snapshot

		select {
		case <-ctx.Done():
			return ctx.Err()
		case s = <-updates:
		}

		switch s.State {
		case trigger.Holding:
			logger.InfoKV(ctx, "Sending SOS alert", "in", s.Remaining)
		case trigger.Locating:
			logger.Info(ctx, "Getting your location...")
		case trigger.AwaitingConfirmation:
			logger.InfoKV(ctx, "Location captured", "location", s.Coordinate.String())

			if err := ctl.Confirm(); err != nil {
				return fmt.Errorf("confirm: %w", err)
			}
		case trigger.LocationUnavailable:
			logger.WarnKV(ctx, "Location unavailable", "reason", s.LocationFailure.String(), "error", s.Err)

			if !allowNoLocation {
				_ = ctl.Cancel()

				return fmt.Errorf("%w: %s", ErrLocationRequired, s.Message())
			}

			if err := ctl.SendWithoutLocation(); err != nil {
				return fmt.Errorf("send without location: %w", err)
			}
		case trigger.Dispatching:
			logger.Info(ctx, "Sending alert...")
		case trigger.Sent:
			logger.Info(ctx, s.Message())

			return nil
		case trigger.Failed:
			logger.ErrorKV(ctx, "Alert failed", "error", s.Err)

			return fmt.Errorf("%w: %s", ErrAlertNotSent, s.Message())
		case trigger.Idle:
			return fmt.Errorf("%w: attempt abandoned", ErrAlertNotSent)
		}
	}
}
