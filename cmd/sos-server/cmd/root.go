package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/server"
	"github.com/oshokin/sos-button/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to the log.
	logLevel string
	// httpAddress overrides the REST listen address.
	httpAddress string
	// journalDriver overrides the journal backend.
	journalDriver string
	// journalDSN overrides the journal location.
	journalDSN string

	// rootCmd represents the base command for running the alert server.
	rootCmd = &cobra.Command{
		Use:   "sos-server [listen-address]",
		Short: "Receive SOS alerts over gRPC and HTTP and journal them.",
		Long: `Starts the SOS alert server.

Alerts are accepted over gRPC and over the REST API, deduplicated by ID and
recorded in a journal (JSON file, SQLite or PostgreSQL).
Only the port from ServerAddress config is used for listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:50051).`,
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

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				JournalDriver: journalDriver,
				JournalDSN:    journalDSN,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the sos-server CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "REST listen address, overrides http_addr from config")
	rootCmd.Flags().StringVar(&journalDriver, "journal", "", "journal driver: file, sqlite or postgres")
	rootCmd.Flags().StringVar(&journalDSN, "journal-dsn", "", "journal file path or database DSN")
}
