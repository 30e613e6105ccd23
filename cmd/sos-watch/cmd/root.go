package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/watcher"
	"github.com/oshokin/sos-button/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to the log.
	logLevel string
	// interval between polls.
	interval time.Duration
	// limit of alerts requested per poll.
	limit int
	// onAlert is the command run for every new alert.
	onAlert string

	// rootCmd represents the base command for watching alerts.
	rootCmd = &cobra.Command{
		Use:   "sos-watch [server-address]",
		Short: "Watch the SOS server and report new alerts.",
		Long: `Polls the SOS server and logs every alert it has not reported yet.

Alerts already journaled at startup are listed once as backlog.
With --on-alert a command is run for every new alert; the alert is passed in
SOS_ALERT_ID, SOS_ALERT_REPORTER, SOS_ALERT_LOCATION, SOS_ALERT_LAT and SOS_ALERT_LON.
Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}

			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use server address argument if provided, otherwise rely on config.
			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			return watcher.Run(ctx, &watcher.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				PollInterval:  interval,
				Limit:         limit,
				Hook:          watcher.ParseHook(onAlert),
			})
		},
	}
)

// Execute runs the sos-watch CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", watcher.DefaultPollInterval, "polling interval")
	rootCmd.Flags().IntVarP(&limit, "limit", "l", watcher.DefaultLimit, "alerts requested per poll")
	rootCmd.Flags().StringVar(&onAlert, "on-alert", "", "command to run for every new alert")
}
