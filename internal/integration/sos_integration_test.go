package integration

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/dispatch"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
	"github.com/oshokin/sos-button/internal/service/button"
	"github.com/oshokin/sos-button/internal/service/common"
	"github.com/oshokin/sos-button/internal/service/watcher"
)

var testReporter = &domain.Reporter{Hostname: "kiosk-7", Username: "guard"}

// dial connects to srv over gRPC.
func dial(t *testing.T, srv *testServer) *common.Client {
	t.Helper()

	c, err := common.Dial(context.Background(), srv.cfg.ServerAddress, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	return c
}

// TestGRPC_Roundtrip submits, resubmits and lists an alert over gRPC.
func TestGRPC_Roundtrip(t *testing.T) {
	t.Parallel()

	srv := startServer(t, fileJournal(t))
	c := dial(t, srv)
	ctx := context.Background()

	alert := &domain.Alert{
		ID:         "grpc-1",
		ReportedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Reporter:   testReporter,
		Location:   &domain.Coordinate{Latitude: 6.5244, Longitude: 3.3792},
	}

	receipt, err := c.SendAlert(ctx, alert)
	require.NoError(t, err)
	require.Equal(t, "grpc-1", receipt.AlertID)
	require.False(t, receipt.Duplicate)

	again, err := c.SendAlert(ctx, alert)
	require.NoError(t, err)
	require.True(t, again.Duplicate)
	require.True(t, again.ReceivedAt.Equal(receipt.ReceivedAt))

	alerts, err := c.ListAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, alert.Location, alerts[0].Location)
	require.Equal(t, testReporter.String(), alerts[0].Reporter.String())
}

// TestHTTP_DispatchAndList delivers alerts through the REST API and lists them back.
func TestHTTP_DispatchAndList(t *testing.T) {
	t.Parallel()

	srv := startServer(t, fileJournal(t))
	backend := "http://" + srv.cfg.HTTPAddress

	d, err := dispatch.NewHTTP(backend, testReporter, dispatch.WithRequestTimeout(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() { _ = d.Close() })

	ctx := context.Background()

	require.NoError(t, d.Send(ctx, &domain.Coordinate{Latitude: 1.5, Longitude: 2.5}))
	require.NoError(t, d.Send(ctx, nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, backend+pb.ListAlertsPath+"?limit=5", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	msg := new(structpb.Struct)
	require.NoError(t, protojson.Unmarshal(body, msg))

	alerts, err := pb.AlertListFromStruct(msg)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	// Newest first: the alert without a location was sent last.
	require.Nil(t, alerts[0].Location)
	require.Equal(t, &domain.Coordinate{Latitude: 1.5, Longitude: 2.5}, alerts[1].Location)
}

// TestButton_Headless runs the trigger end to end over each transport.
func TestButton_Headless(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		dispatcher string
	}{
		{name: "grpc", dispatcher: config.DispatcherGRPC},
		{name: "http", dispatcher: config.DispatcherHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := startServer(t, fileJournal(t))
			cfgPath := saveClientConfig(t, srv, func(cfg *config.Config) {
				cfg.Dispatcher = tt.dispatcher
				cfg.Location = config.Location{Provider: config.LocationStatic, Latitude: 52.52, Longitude: 13.405}
			})

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			require.NoError(t, button.Run(ctx, &button.Options{ConfigPath: cfgPath, Yes: true}))

			alerts, err := dial(t, srv).ListAlerts(ctx, 0)
			require.NoError(t, err)
			require.Len(t, alerts, 1)
			require.Equal(t, &domain.Coordinate{Latitude: 52.52, Longitude: 13.405}, alerts[0].Location)
		})
	}
}

// TestButton_Headless_NoLocation sends with an unknown location.
func TestButton_Headless_NoLocation(t *testing.T) {
	t.Parallel()

	srv := startServer(t, fileJournal(t))
	cfgPath := saveClientConfig(t, srv, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := button.Run(ctx, &button.Options{ConfigPath: cfgPath, Yes: true, AllowNoLocation: false})
	require.ErrorIs(t, err, button.ErrLocationRequired)

	require.NoError(t, button.Run(ctx, &button.Options{ConfigPath: cfgPath, Yes: true, AllowNoLocation: true}))

	alerts, err := dial(t, srv).ListAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Nil(t, alerts[0].Location)
}

// TestButton_Headless_ServerDown fails with the emergency instruction.
func TestButton_Headless_ServerDown(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, config.Save(cfgPath, &config.Config{
		Dispatcher: config.DispatcherHTTP,
		BackendURL: "http://" + freeAddress(t),
		Timeout:    time.Second,
		Hold:       config.Hold{Ticks: 1, Interval: 10 * time.Millisecond},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := button.Run(ctx, &button.Options{ConfigPath: cfgPath, Yes: true, AllowNoLocation: true})
	require.ErrorIs(t, err, button.ErrAlertNotSent)
	require.ErrorContains(t, err, "emergency number")
}

// TestWatcher_ReportsNewAlerts announces alerts submitted while watching.
func TestWatcher_ReportsNewAlerts(t *testing.T) {
	t.Parallel()

	srv := startServer(t, fileJournal(t))
	c := dial(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := c.SendAlert(ctx, &domain.Alert{ID: "backlog", Reporter: testReporter})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		notified []string
	)

	done := make(chan error, 1)

	go func() {
		done <- watcher.Run(ctx, &watcher.Options{
			ConfigPath:   srv.cfgPath,
			PollInterval: 50 * time.Millisecond,
			Notify: func(alert *domain.Alert) {
				mu.Lock()
				notified = append(notified, alert.ID)
				mu.Unlock()
			},
		})
	}()

	// Let the first poll take the backlog.
	time.Sleep(200 * time.Millisecond)

	_, err = c.SendAlert(ctx, &domain.Alert{ID: "fresh", Reporter: testReporter})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(notified) == 1 && notified[0] == "fresh"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

// TestSQLiteJournal_SurvivesRestart keeps alerts and deduplication across restarts.
func TestSQLiteJournal_SurvivesRestart(t *testing.T) {
	t.Parallel()

	journal := config.Journal{
		Driver: config.JournalSQLite,
		DSN:    filepath.Join(t.TempDir(), "alerts.db"),
	}

	ctx := context.Background()
	alert := &domain.Alert{ID: "persisted", Reporter: testReporter}

	first := startServer(t, journal)

	receipt, err := dial(t, first).SendAlert(ctx, alert)
	require.NoError(t, err)

	first.stop()

	second := startServer(t, journal)
	c := dial(t, second)

	again, err := c.SendAlert(ctx, alert)
	require.NoError(t, err)
	require.True(t, again.Duplicate)
	require.True(t, again.ReceivedAt.Equal(receipt.ReceivedAt))

	alerts, err := c.ListAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
}
