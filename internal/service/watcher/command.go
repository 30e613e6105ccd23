package watcher

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/common"
)

// Options controls the watcher polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between polls.
	PollInterval time.Duration
	// Limit is the number of recent alerts requested per poll.
	Limit int
	// Hook is run once for every new alert, nil disables it.
	Hook []string
	// Notify is called once for every new alert after it is logged.
	Notify func(*domain.Alert)
}

const (
	// DefaultPollInterval defines the polling interval when none is configured.
	DefaultPollInterval = 5 * time.Second
	// DefaultLimit is the number of alerts requested per poll.
	DefaultLimit = 50
)

// alertLister is the part of the service client the watcher uses.
type alertLister interface {
	ListAlerts(ctx context.Context, limit int) ([]*domain.Alert, error)
}

// Run polls the server and reports new alerts until the context is canceled.
// Alerts already journaled when the watcher starts are logged as backlog
// without running the hook.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sos-watch")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Establish gRPC connection with timeout from configuration.
	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching for SOS alerts", "server_address", serverAddress, "interval", opts.PollInterval.String())

	w := newWatch(client, opts)

	// First poll establishes the backlog.
	if err = w.poll(ctx); err != nil {
		logger.ErrorKV(ctx, "Poll failed", "error", err)
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			if err = w.poll(ctx); err != nil {
				logger.ErrorKV(ctx, "Poll failed", "error", err)
			}
		}
	}
}

// watch remembers which alerts were already reported.
type watch struct {
	// lister fetches recent alerts.
	lister alertLister
	// limit is requested per poll.
	limit int
	// hook runs per new alert.
	hook []string
	// notify is called per new alert.
	notify func(*domain.Alert)
	// seen holds the reported IDs of the latest poll window.
	seen map[string]struct{}
	// primed is set after the first successful poll.
	primed bool
}

func newWatch(lister alertLister, opts *Options) *watch {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &watch{
		lister: lister,
		limit:  limit,
		hook:   opts.Hook,
		notify: opts.Notify,
		seen:   make(map[string]struct{}),
	}
}

// poll fetches recent alerts and reports the unseen ones, oldest first.
func (w *watch) poll(ctx context.Context) error {
	alerts, err := w.lister.ListAlerts(ctx, w.limit)
	if err != nil {
		return err
	}

	backlog := !w.primed
	w.primed = true

	// Alerts older than the window never come back, so only its IDs are kept.
	window := make(map[string]struct{}, len(alerts))

	defer func() { w.seen = window }()

	// The server lists newest first.
	for _, alert := range slices.Backward(alerts) {
		window[alert.ID] = struct{}{}

		if _, ok := w.seen[alert.ID]; ok {
			continue
		}

		if backlog {
			logger.InfoKV(ctx, "Journaled SOS alert",
				"alert_id", alert.ID,
				"reporter", alert.Reporter.String(),
				"location", alert.LocationText(),
				"received_at", alert.ReceivedAt.Format(time.RFC3339),
			)

			continue
		}

		w.report(ctx, alert)
	}

	return nil
}

// report announces a new alert.
func (w *watch) report(ctx context.Context, alert *domain.Alert) {
	logger.WarnKV(ctx, "NEW SOS ALERT",
		"alert_id", alert.ID,
		"reporter", alert.Reporter.String(),
		"location", alert.LocationText(),
		"received_at", alert.ReceivedAt.Format(time.RFC3339),
	)

	if len(w.hook) > 0 {
		if err := runHook(ctx, w.hook, alert); err != nil {
			logger.ErrorKV(ctx, "Alert hook failed", "alert_id", alert.ID, "error", err)
		}
	}

	if w.notify != nil {
		w.notify(alert)
	}
}
