//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestSendAlert_NilAlert asserts that a nil alert is rejected by the client.
func TestSendAlert_NilAlert(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.SendAlert(context.Background(), nil)
	require.ErrorIs(t, err, errAlertRequired)

	_, err = c.SendAlert(context.Background(), &domain.Alert{ID: "x"})
	require.ErrorIs(t, err, errNotConnected)

	_, err = c.ListAlerts(context.Background(), 1)
	require.ErrorIs(t, err, errNotConnected)
}

// stubServer records received alerts and serves them back.
type stubServer struct {
	pb.UnimplementedAlertServiceServer

	// alerts are returned by ListAlerts.
	alerts []*domain.Alert
	// limit is the last requested limit.
	limit int
}

func (s *stubServer) SendAlert(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	alert, err := pb.AlertFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if alert.ID == "reject" {
		return nil, status.Error(codes.Unavailable, "backend down")
	}

	s.alerts = append(s.alerts, alert)

	return pb.ReceiptToStruct(&domain.Receipt{
		AlertID:    alert.ID,
		ReceivedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func (s *stubServer) ListAlerts(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	s.limit = pb.LimitFromStruct(in)

	return pb.AlertListToStruct(s.alerts)
}

// dialStub starts an in-memory server and returns a connected client.
func dialStub(t *testing.T, srv pb.AlertServiceServer) *Client {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	pb.RegisterAlertServiceServer(server, srv)

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(server.Stop)

	client, err := Dial(
		context.Background(),
		"passthrough:///bufnet",
		WithCallTimeout(time.Second),
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		})),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	return client
}

// TestClient_SendAndList exercises both RPCs against an in-memory server.
func TestClient_SendAndList(t *testing.T) {
	t.Parallel()

	srv := new(stubServer)
	client := dialStub(t, srv)

	receipt, err := client.SendAlert(t.Context(), &domain.Alert{
		ID:       "a-1",
		Location: &domain.Coordinate{Latitude: 6.5, Longitude: 3.3},
	})
	require.NoError(t, err)
	require.Equal(t, "a-1", receipt.AlertID)
	require.False(t, receipt.Duplicate)

	_, err = client.SendAlert(t.Context(), &domain.Alert{ID: "reject"})
	require.Error(t, err)
	require.Equal(t, codes.Unavailable, status.Code(err))

	alerts, err := client.ListAlerts(t.Context(), 7)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, &domain.Coordinate{Latitude: 6.5, Longitude: 3.3}, alerts[0].Location)
	require.Equal(t, 7, srv.limit)
}
