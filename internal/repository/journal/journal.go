package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// Repository defines persistence operations for received alerts.
type Repository interface {
	// Append journals alert. It reports false without an error when an alert
	// with the same ID is already journaled.
	Append(ctx context.Context, alert *domain.Alert) (bool, error)
	// Get returns the journaled alert with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Alert, error)
	// List returns up to limit alerts, newest first.
	List(ctx context.Context, limit int) ([]*domain.Alert, error)
	// Close releases the underlying storage.
	Close() error
}

var (
	// ErrNotFound is returned when an alert is not journaled.
	ErrNotFound = errors.New("alert not found")

	errAlertRequired = errors.New("alert must be provided")
	errUnknownDriver = errors.New("unknown journal driver")
)

// Open opens the journal selected by driver.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case config.JournalFile, "":
		return NewFileRepository(dsn), nil
	case config.JournalSQLite, config.JournalPostgres:
		repo, err := OpenSQL(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}

		return repo, nil
	default:
		return nil, fmt.Errorf("journal driver %q: %w", driver, errUnknownDriver)
	}
}

// clampLimit bounds a listing request.
func clampLimit(limit, total int) int {
	if limit <= 0 || limit > total {
		return total
	}

	return limit
}
