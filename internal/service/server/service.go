package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/repository/journal"
)

const (
	// DefaultListLimit is used when a listing request has no limit.
	DefaultListLimit = 20
	// MaxListLimit caps a listing request.
	MaxListLimit = 200
)

var (
	// ErrInvalidAlert is returned for alerts the journal must not accept.
	ErrInvalidAlert = errors.New("invalid alert")
	// errRepositoryRequired is returned when no journal is provided.
	errRepositoryRequired = errors.New("journal repository must be provided")
)

// service encapsulates alert intake and the journal.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// repo journals received alerts.
	repo journal.Repository
	// now stamps ReceivedAt.
	now func() time.Time
	// mu serializes the append-or-lookup sequence of SubmitAlert.
	mu sync.Mutex
}

// newService creates a service backed by the provided journal.
func newService(repository journal.Repository, now func() time.Time) (*service, error) {
	if repository == nil {
		return nil, errRepositoryRequired
	}

	if now == nil {
		now = time.Now
	}

	return &service{
		repo: repository,
		now:  now,
	}, nil
}

// SubmitAlert journals an alert once. Resubmissions of the same ID are
// acknowledged with the original receipt and flagged as duplicates.
func (s *service) SubmitAlert(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error) {
	if alert == nil {
		return nil, fmt.Errorf("%w: alert is nil", ErrInvalidAlert)
	}

	if err := alert.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAlert, err)
	}

	stored := alert.Clone()
	stored.ReceivedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted, err := s.repo.Append(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("journal alert: %w", err)
	}

	if !inserted {
		existing, err := s.repo.Get(ctx, alert.ID)
		if err != nil {
			return nil, fmt.Errorf("load journaled alert: %w", err)
		}

		logger.InfoKV(ctx, "Duplicate SOS alert acknowledged", "alert_id", alert.ID, "reporter", existing.Reporter.String())

		return &domain.Receipt{
			AlertID:    existing.ID,
			ReceivedAt: existing.ReceivedAt,
			Duplicate:  true,
		}, nil
	}

	logger.WarnKV(ctx, "SOS alert received",
		"alert_id", stored.ID,
		"reporter", stored.Reporter.String(),
		"location", stored.LocationText(),
		"reported_at", stored.ReportedAt,
	)

	return &domain.Receipt{
		AlertID:    stored.ID,
		ReceivedAt: stored.ReceivedAt,
	}, nil
}

// RecentAlerts returns up to limit alerts, newest first.
// A non-positive limit uses DefaultListLimit; larger limits are capped at MaxListLimit.
func (s *service) RecentAlerts(ctx context.Context, limit int) ([]*domain.Alert, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	alerts, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}

	logger.DebugKV(ctx, "Alerts listed", "limit", limit, "count", len(alerts))

	return alerts, nil
}
