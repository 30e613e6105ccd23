package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/service/common"
)

// Dispatcher delivers alerts and owns the transport it uses.
type Dispatcher interface {
	// Send delivers one alert. A nil location means the position is unknown.
	Send(ctx context.Context, location *domain.Coordinate) error
	// Close releases the transport.
	Close() error
}

var (
	errUnknownDispatcher = errors.New("unknown dispatcher")
	errReporterRequired  = errors.New("reporter must be provided")
)

// Option configures a dispatcher.
type Option func(*base)

// WithClock overrides the time source stamped on alerts.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator overrides how alert identifiers are generated.
func WithIDGenerator(newID func() string) Option {
	return func(b *base) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// WithZeroSentinel sends (0,0) instead of an explicit null when no location is known.
// Only backends that predate the null location need it; they cannot tell
// the sentinel from a real position at (0,0).
func WithZeroSentinel() Option {
	return func(b *base) {
		b.zeroSentinel = true
	}
}

// base builds alerts for every dispatcher.
type base struct {
	// reporter is attached to every alert.
	reporter *domain.Reporter
	// now stamps ReportedAt.
	now func() time.Time
	// newID generates alert identifiers.
	newID func() string
	// zeroSentinel replaces a nil location with (0,0).
	zeroSentinel bool
	// session performs HTTP requests.
	session *http.Client
	// timeout bounds one HTTP delivery.
	timeout time.Duration
}

func newBase(reporter *domain.Reporter, opts []Option) (base, error) {
	if reporter == nil {
		return base{}, errReporterRequired
	}

	b := base{
		reporter: reporter.Clone(),
		now:      time.Now,
		newID:    uuid.NewString,
		session:  http.DefaultClient,
		timeout:  config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(&b)
	}

	return b, nil
}

// newAlert builds the payload of one delivery.
func (b *base) newAlert(location *domain.Coordinate) *domain.Alert {
	alert := &domain.Alert{
		ID:         b.newID(),
		ReportedAt: b.now().UTC(),
		Reporter:   b.reporter.Clone(),
	}

	switch {
	case location != nil:
		alert.Location = location.Ptr()
	case b.zeroSentinel:
		alert.Location = new(domain.Coordinate)
	}

	return alert
}

// New builds the dispatcher selected by cfg. The configuration is expected to be validated.
func New(ctx context.Context, cfg *config.Config, reporter *domain.Reporter, opts ...Option) (Dispatcher, error) {
	if cfg.LegacyZeroSentinel {
		opts = append(opts, WithZeroSentinel())
	}

	switch cfg.Dispatcher {
	case config.DispatcherGRPC, "":
		client, err := common.Dial(ctx, cfg.ServerAddress, common.WithCallTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}

		d, err := NewGRPC(client, reporter, opts...)
		if err != nil {
			_ = client.Close()

			return nil, err
		}

		return d, nil
	case config.DispatcherHTTP:
		d, err := NewHTTP(cfg.BackendURL, reporter, append([]Option{WithRequestTimeout(cfg.Timeout)}, opts...)...)
		if err != nil {
			return nil, err
		}

		return d, nil
	default:
		return nil, fmt.Errorf("dispatcher %q: %w", cfg.Dispatcher, errUnknownDispatcher)
	}
}
