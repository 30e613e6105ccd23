package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/sos-button/internal/api/grpc/sos"
	"github.com/oshokin/sos-button/internal/api/rest"
	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/logger"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
	"github.com/oshokin/sos-button/internal/repository/journal"
)

// Options controls the sos-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress provides an optional listen address override for the REST API.
	HTTPAddress string
	// JournalDriver overrides the journal driver from the settings.
	JournalDriver string
	// JournalDSN overrides the journal location from the settings.
	JournalDSN string
}

// shutdownTimeout bounds the graceful stop of the HTTP server.
const shutdownTimeout = 5 * time.Second

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC and HTTP servers and blocks until context is canceled or a server fails.
// Loads configuration first, then determines listen addresses from config or overrides.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sos-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	journalSettings := settings.Journal
	if opts.JournalDriver != "" {
		journalSettings.Driver = opts.JournalDriver
	}

	if opts.JournalDSN != "" {
		journalSettings.DSN = opts.JournalDSN
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	httpAddress := settings.HTTPAddress
	if opts.HTTPAddress != "" {
		httpAddress = opts.HTTPAddress
	}

	// Open the alert journal.
	repo, err := journal.Open(ctx, journalSettings.Driver, journalSettings.DSN)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close journal", "error", closeErr)
		}
	}()

	svc, err := newService(repo, time.Now)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	// Setup TCP listeners before serving so address errors surface immediately.
	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	httpListener, err := lc.Listen(ctx, "tcp", httpAddress)
	if err != nil {
		_ = grpcListener.Close()

		return fmt.Errorf("listen on %s: %w", httpAddress, err)
	}

	grpcServer := grpc.NewServer()
	pb.RegisterAlertServiceServer(grpcServer, api.NewServer(svc))

	httpServer := &http.Server{
		Handler:           rest.NewRouter(ctx, svc),
		ReadHeaderTimeout: settings.Timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.InfoKV(ctx, "SOS server listening",
		"grpc_address", grpcListener.Addr().String(),
		"http_address", httpListener.Addr().String(),
		"journal_driver", journalSettings.Driver,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}

		return nil
	})

	// Stop both servers when the process is cancelled or either server fails.
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}

		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "SOS server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
