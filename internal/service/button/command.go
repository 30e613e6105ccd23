package button

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/dispatch"
	"github.com/oshokin/sos-button/internal/location"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/common"
	"github.com/oshokin/sos-button/internal/trigger"
)

// Options configures the sos-button trigger.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the gRPC server address from config when specified.
	ServerAddress string
	// Yes runs headless: the alert is sent without interaction.
	Yes bool
	// AllowNoLocation lets headless mode send when the position is unknown.
	AllowNoLocation bool
	// LogFile receives the logs while the terminal view is running.
	LogFile string
	// ReleaseGrace overrides DefaultReleaseGrace.
	ReleaseGrace time.Duration
}

// DefaultLogFile is where the interactive view writes its logs.
const DefaultLogFile = "sos-button.log"

// Run builds the trigger from the settings and performs alert attempts until
// the user quits (interactive) or one attempt ends (headless).
func Run(ctx context.Context, opts *Options) error {
	// The terminal view owns the screen, so logs go to a file.
	if !opts.Yes {
		restore, err := redirectLogs(opts.LogFile)
		if err != nil {
			return err
		}

		defer restore()
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sos-button")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	if opts.ServerAddress != "" {
		cfg.ServerAddress = opts.ServerAddress
	}

	// Identify current user and hostname for the alert.
	reporter, err := common.DetectReporter()
	if err != nil {
		return err
	}

	locator, err := location.New(cfg.Location)
	if err != nil {
		return fmt.Errorf("location provider: %w", err)
	}

	dispatcher, err := dispatch.New(ctx, cfg, reporter)
	if err != nil {
		return fmt.Errorf("alert dispatcher: %w", err)
	}

	// Close connection on function exit.
	defer func() {
		_ = dispatcher.Close()
	}()

	logger.InfoKV(ctx, "SOS trigger ready",
		"dispatcher", cfg.Dispatcher,
		"location_provider", cfg.Location.Provider,
		"reporter", reporter.String(),
	)

	if opts.Yes {
		return runMachineHeadless(ctx, cfg, locator, dispatcher, opts.AllowNoLocation)
	}

	return runMachineInteractive(ctx, cfg, locator, dispatcher, opts.ReleaseGrace)
}

// machineOptions builds the countdown options from the settings.
func machineOptions(cfg *config.Config, listener trigger.Listener) []trigger.Option {
	return []trigger.Option{
		trigger.WithHoldTicks(cfg.Hold.Ticks),
		trigger.WithTickInterval(cfg.Hold.Interval),
		trigger.WithListener(listener),
	}
}

func runMachineHeadless(
	ctx context.Context,
	cfg *config.Config,
	locator trigger.LocationProvider,
	dispatcher trigger.AlertDispatcher,
	allowNoLocation bool,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan trigger.Snapshot)
	r := newRelay(func(s trigger.Snapshot) {
		select {
		case updates <- s:
		case <-ctx.Done():
		}
	})

	machine, err := trigger.New(ctx, locator, dispatcher, machineOptions(cfg, r.push)...)
	if err != nil {
		return err
	}

	defer machine.Close()

	go r.run(ctx)

	return runHeadless(ctx, machine, updates, allowNoLocation)
}

func runMachineInteractive(
	ctx context.Context,
	cfg *config.Config,
	locator trigger.LocationProvider,
	dispatcher trigger.AlertDispatcher,
	grace time.Duration,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program

	r := newRelay(func(s trigger.Snapshot) {
		program.Send(snapshotMsg(s))
	})

	machine, err := trigger.New(ctx, locator, dispatcher, machineOptions(cfg, r.push)...)
	if err != nil {
		return err
	}

	defer machine.Close()

	program = tea.NewProgram(newModel(ctx, machine, grace), tea.WithContext(ctx))

	go r.run(ctx)

	if _, err = program.Run(); err != nil {
		// Interrupted by a signal.
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("run terminal view: %w", err)
	}

	return nil
}

// redirectLogs points the global logger at a file and returns the undo function.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		path = DefaultLogFile
	}

	fileLogger, closer, err := logger.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	previous := logger.Logger()
	logger.SetLogger(fileLogger)

	return func() {
		logger.SetLogger(previous)

		_ = closer.Close()
	}, nil
}
