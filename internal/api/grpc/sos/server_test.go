package sos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
)

var errTestJournal = errors.New("journal is read-only")

// fakeService implements the Service interface for unit testing the transport.
type fakeService struct {
	// submitFn overrides SubmitAlert when set.
	submitFn func(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error)
	// listErr is returned by RecentAlerts.
	listErr error

	// alerts holds submitted alerts, newest first.
	alerts []*domain.Alert
	// limit is the last requested limit.
	limit int
}

// SubmitAlert records the alert unless submitFn is provided.
func (f *fakeService) SubmitAlert(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error) {
	if f.submitFn != nil {
		return f.submitFn(ctx, alert)
	}

	f.alerts = append([]*domain.Alert{alert}, f.alerts...)

	return &domain.Receipt{AlertID: alert.ID, ReceivedAt: time.Now()}, nil
}

// RecentAlerts returns the recorded alerts.
func (f *fakeService) RecentAlerts(_ context.Context, limit int) ([]*domain.Alert, error) {
	f.limit = limit

	return f.alerts, f.listErr
}

// mustStruct parses a JSON object into a Struct.
func mustStruct(t *testing.T, payload string) *structpb.Struct {
	t.Helper()

	var s structpb.Struct
	require.NoError(t, protojson.Unmarshal([]byte(payload), &s))

	return &s
}

// TestServer_SendAlert_Validation ensures invalid requests return InvalidArgument errors.
func TestServer_SendAlert_Validation(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	_, err := s.SendAlert(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	for _, payload := range []string{
		`{"location":null}`,
		`{"id":"a-1","location":{"latitude":120,"longitude":0}}`,
		`{"id":"a-1","location":"here"}`,
	} {
		_, err = s.SendAlert(context.Background(), mustStruct(t, payload))
		require.Equal(t, codes.InvalidArgument, status.Code(err), payload)
	}

	require.Empty(t, svc.alerts)
}

// TestServer_SendAlert_ServiceFailure hides journal errors behind Internal.
func TestServer_SendAlert_ServiceFailure(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{
		submitFn: func(context.Context, *domain.Alert) (*domain.Receipt, error) {
			return nil, errTestJournal
		},
	})

	_, err := s.SendAlert(context.Background(), mustStruct(t, `{"id":"a-1","location":null}`))
	require.Equal(t, codes.Internal, status.Code(err))
	require.NotContains(t, err.Error(), errTestJournal.Error())
}

// TestServer_Roundtrip exercises SendAlert and ListAlerts on the server implementation.
func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	request, err := pb.AlertToStruct(&domain.Alert{
		ID:       "a-1",
		Reporter: &domain.Reporter{Hostname: "test-hostname", Username: "test-user"},
	})
	require.NoError(t, err)

	response, err := s.SendAlert(context.Background(), request)
	require.NoError(t, err)

	receipt, err := pb.ReceiptFromStruct(response)
	require.NoError(t, err)
	require.Equal(t, "a-1", receipt.AlertID)

	listed, err := s.ListAlerts(context.Background(), pb.ListRequestToStruct(5))
	require.NoError(t, err)
	require.Equal(t, 5, svc.limit)

	alerts, err := pb.AlertListFromStruct(listed)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Nil(t, alerts[0].Location)
	require.Equal(t, "test-user", alerts[0].Reporter.Username)

	svc.listErr = errTestJournal

	_, err = s.ListAlerts(context.Background(), nil)
	require.Equal(t, codes.Internal, status.Code(err))
}
