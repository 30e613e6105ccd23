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
	"github.com/oshokin/sos-button/internal/service/button"
	"github.com/oshokin/sos-button/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel is the minimum level written to the log.
	logLevel string
	// logFile receives logs while the terminal view is running.
	logFile string
	// yes sends the alert without interaction.
	yes bool
	// allowNoLocation lets headless mode send without a position.
	allowNoLocation bool
	// releaseGrace is how long the space bar may stay silent before the hold ends.
	releaseGrace time.Duration

	// rootCmd represents the base command for triggering an SOS alert.
	rootCmd = &cobra.Command{
		Use:   "sos-button [server-address]",
		Short: "Press and hold to send an SOS alert.",
		Long: `Sends an emergency alert with your location to the SOS server.

Hold SPACE until the countdown finishes, then confirm the captured location.
If the location cannot be determined you can retry, send the alert without it, or cancel.
A failed delivery is never resent automatically: call your local emergency number instead.

With --yes the alert is sent without interaction, which is meant for hardware buttons and scripts.
Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setup(logLevel)
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

			return button.Run(ctx, &button.Options{
				ConfigPath:      cfgPath,
				ServerAddress:   serverAddress,
				Yes:             yes,
				AllowNoLocation: allowNoLocation,
				LogFile:         logFile,
				ReleaseGrace:    releaseGrace,
			})
		},
	}
)

// Execute runs the sos-button CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the dotenv file and applies the log level.
func setup(level string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	logger.SetLevel(parsed)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", button.DefaultLogFile, "log file used by the terminal view")
	rootCmd.Flags().BoolVarP(&yes, "yes", "y", false, "send the alert without interaction")
	rootCmd.Flags().BoolVar(&allowNoLocation, "allow-no-location", true, "with --yes, send even if the location is unknown")
	rootCmd.Flags().DurationVar(&releaseGrace, "release-grace", button.DefaultReleaseGrace,
		"silence after the last space key event that counts as releasing the hold")
}
