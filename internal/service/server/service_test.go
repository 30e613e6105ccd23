package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/repository/journal"
)

var errTestJournal = errors.New("test journal error")

// mockRepository is a testify mock of journal.Repository.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Append(ctx context.Context, alert *domain.Alert) (bool, error) {
	args := m.Called(ctx, alert)

	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Get(ctx context.Context, id string) (*domain.Alert, error) {
	args := m.Called(ctx, id)
	alert, _ := args.Get(0).(*domain.Alert)

	return alert, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, limit int) ([]*domain.Alert, error) {
	args := m.Called(ctx, limit)
	alerts, _ := args.Get(0).([]*domain.Alert)

	return alerts, args.Error(1)
}

func (m *mockRepository) Close() error {
	return m.Called().Error(0)
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestNewService_RequiresRepository rejects a nil journal.
func TestNewService_RequiresRepository(t *testing.T) {
	t.Parallel()

	s, err := newService(nil, nil)
	require.ErrorIs(t, err, errRepositoryRequired)
	require.Nil(t, s)
}

// TestService_SubmitAlert_Deduplicates journals an ID once and acknowledges resubmissions.
func TestService_SubmitAlert_Deduplicates(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	repo := journal.NewFileRepository(filepath.Join(t.TempDir(), "journal.json"))

	s, err := newService(repo, fixedClock(first))
	require.NoError(t, err)

	alert := &domain.Alert{
		ID:       "a-1",
		Reporter: &domain.Reporter{Hostname: "kiosk", Username: "guard"},
		Location: &domain.Coordinate{Latitude: 6.5, Longitude: 3.3},
	}

	receipt, err := s.SubmitAlert(context.Background(), alert)
	require.NoError(t, err)
	require.False(t, receipt.Duplicate)
	require.True(t, receipt.ReceivedAt.Equal(first))

	// The caller's alert is not modified.
	require.True(t, alert.ReceivedAt.IsZero())

	s.now = fixedClock(first.Add(time.Minute))

	receipt, err = s.SubmitAlert(context.Background(), alert)
	require.NoError(t, err)
	require.True(t, receipt.Duplicate)
	require.True(t, receipt.ReceivedAt.Equal(first))

	alerts, err := s.RecentAlerts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, alert.Location, alerts[0].Location)
}

// TestService_SubmitAlert_Concurrent journals concurrent resubmissions once.
func TestService_SubmitAlert_Concurrent(t *testing.T) {
	t.Parallel()

	repo := journal.NewFileRepository(filepath.Join(t.TempDir(), "journal.json"))

	s, err := newService(repo, time.Now)
	require.NoError(t, err)

	const submitters = 6

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		duplicates int
	)

	for range submitters {
		wg.Go(func() {
			receipt, err := s.SubmitAlert(context.Background(), &domain.Alert{ID: "same"})
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}

			if receipt.Duplicate {
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	require.Equal(t, submitters-1, duplicates)
}

// TestService_SubmitAlert_Invalid rejects alerts before touching the journal.
func TestService_SubmitAlert_Invalid(t *testing.T) {
	t.Parallel()

	repo := new(mockRepository)

	s, err := newService(repo, nil)
	require.NoError(t, err)

	_, err = s.SubmitAlert(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidAlert)

	_, err = s.SubmitAlert(context.Background(), &domain.Alert{ID: " "})
	require.ErrorIs(t, err, ErrInvalidAlert)
	require.ErrorIs(t, err, domain.ErrAlertIDRequired)

	_, err = s.SubmitAlert(context.Background(), &domain.Alert{ID: "x", Location: &domain.Coordinate{Longitude: 181}})
	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)

	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

// TestService_SubmitAlert_JournalFailure surfaces journal errors.
func TestService_SubmitAlert_JournalFailure(t *testing.T) {
	t.Parallel()

	repo := new(mockRepository)
	repo.On("Append", mock.Anything, mock.MatchedBy(func(a *domain.Alert) bool {
		return a.ID == "a-1" && !a.ReceivedAt.IsZero()
	})).Return(false, errTestJournal).Once()

	s, err := newService(repo, nil)
	require.NoError(t, err)

	_, err = s.SubmitAlert(context.Background(), &domain.Alert{ID: "a-1"})
	require.ErrorIs(t, err, errTestJournal)

	repo.AssertExpectations(t)
}

// TestService_RecentAlerts_ClampsLimit applies the default and the maximum.
func TestService_RecentAlerts_ClampsLimit(t *testing.T) {
	t.Parallel()

	repo := new(mockRepository)
	repo.On("List", mock.Anything, DefaultListLimit).Return([]*domain.Alert{}, nil).Once()
	repo.On("List", mock.Anything, MaxListLimit).Return([]*domain.Alert{}, nil).Once()
	repo.On("List", mock.Anything, 7).Return(nil, errTestJournal).Once()

	s, err := newService(repo, nil)
	require.NoError(t, err)

	_, err = s.RecentAlerts(context.Background(), -1)
	require.NoError(t, err)

	_, err = s.RecentAlerts(context.Background(), 10_000)
	require.NoError(t, err)

	_, err = s.RecentAlerts(context.Background(), 7)
	require.ErrorIs(t, err, errTestJournal)

	repo.AssertExpectations(t)
}
