package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/service/server"
)

// freeAddress reserves a free local port and releases it for the caller.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// testServer is a running sos-server.
type testServer struct {
	// cfg is the saved configuration, usable by clients too.
	cfg *config.Config
	// cfgPath is where cfg was saved.
	cfgPath string
	// stop cancels the server and waits for it.
	stop func()
}

// startServer runs sos-server with the given journal until the test ends.
func startServer(t *testing.T, journal config.Journal) *testServer {
	t.Helper()

	// Create cancellable context for server lifecycle.
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &config.Config{
		ServerAddress: freeAddress(t),
		HTTPAddress:   freeAddress(t),
		Timeout:       5 * time.Second,
		Hold:          config.Hold{Ticks: 1, Interval: 10 * time.Millisecond},
		Journal:       journal,
	}

	// Create temporary configuration file.
	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	done := make(chan error, 1)

	// Start server in background goroutine.
	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath:    cfgPath,
			ListenAddress: cfg.ServerAddress,
		})
	}()

	// Wait briefly for server to start listening.
	time.Sleep(150 * time.Millisecond)

	stopped := false
	stop := func() {
		if stopped {
			return
		}

		stopped = true

		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	}

	t.Cleanup(stop)

	return &testServer{cfg: cfg, cfgPath: cfgPath, stop: stop}
}

// saveClientConfig stores a trigger configuration pointing at srv.
func saveClientConfig(t *testing.T, srv *testServer, mutate func(*config.Config)) string {
	t.Helper()

	cfg := &config.Config{
		ServerAddress: srv.cfg.ServerAddress,
		BackendURL:    "http://" + srv.cfg.HTTPAddress,
		Timeout:       3 * time.Second,
		Hold:          config.Hold{Ticks: 1, Interval: 10 * time.Millisecond},
	}

	if mutate != nil {
		mutate(cfg)
	}

	cfgPath := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	return cfgPath
}

// fileJournal is a JSON journal in a temporary directory.
func fileJournal(t *testing.T) config.Journal {
	t.Helper()

	return config.Journal{
		Driver: config.JournalFile,
		DSN:    filepath.Join(t.TempDir(), "journal.json"),
	}
}
