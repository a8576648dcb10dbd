package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HollandReese/bulwark/internal/models"
	"github.com/HollandReese/bulwark/internal/services"
)

type mockActivityStore struct {
	activities []*models.LoginActivity

	recordErr error
	countErr  error
	lastErr   error
}

func (m *mockActivityStore) Record(ctx context.Context, activity *models.LoginActivity) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	activity.ID = uuid.NewString()
	if activity.AttemptedAt.IsZero() {
		activity.AttemptedAt = time.Now()
	}
	m.activities = append(m.activities, activity)
	return nil
}

func (m *mockActivityStore) CountFailuresSince(ctx context.Context, address string, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	count := 0
	for _, a := range m.activities {
		if a.IPAddress == address && !a.Success && a.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockActivityStore) LastSuccessTime(ctx context.Context, address string) (*time.Time, error) {
	if m.lastErr != nil {
		return nil, m.lastErr
	}
	var latest *time.Time
	for _, a := range m.activities {
		if a.IPAddress == address && a.Success {
			t := a.AttemptedAt
			if latest == nil || t.After(*latest) {
				latest = &t
			}
		}
	}
	return latest, nil
}

type mockEscalator struct {
	calls []int
	err   error
}

func (m *mockEscalator) HandleBruteForce(ctx context.Context, address, identifier string, failureCount int) error {
	m.calls = append(m.calls, failureCount)
	return m.err
}

func newTestLoginMonitor(store *mockActivityStore, escalator *mockEscalator) *services.LoginMonitorService {
	return services.NewLoginMonitorService(store, escalator, services.LoginMonitorConfig{
		Window:    15 * time.Minute,
		Threshold: 5,
	}, testLogger())
}

func failTimes(t *testing.T, monitor *services.LoginMonitorService, address string, n int) services.LoginDirective {
	t.Helper()
	var directive services.LoginDirective
	var err error
	for i := 0; i < n; i++ {
		directive, err = monitor.OnLoginResult(context.Background(), address, "victim@example.com", false, "test-agent")
		require.NoError(t, err)
	}
	return directive
}

func TestLoginMonitorOnLoginResult_SuccessProceeds(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	directive, err := monitor.OnLoginResult(context.Background(), "192.0.2.1", "user@example.com", true, "test-agent")
	require.NoError(t, err)

	assert.True(t, directive.Proceed)
	assert.Empty(t, directive.Message)
	require.Len(t, store.activities, 1)
	assert.True(t, store.activities[0].Success)
}

func TestLoginMonitorOnLoginResult_FailuresBelowThresholdProceed(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	directive := failTimes(t, monitor, "192.0.2.1", 4)

	assert.True(t, directive.Proceed)
	assert.Empty(t, escalator.calls)
}

func TestLoginMonitorOnLoginResult_ThresholdEscalatesAndRejects(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	directive := failTimes(t, monitor, "192.0.2.1", 5)

	assert.False(t, directive.Proceed)
	assert.Equal(t, services.GenericLoginFailure, directive.Message)
	require.Len(t, escalator.calls, 1)
	assert.Equal(t, 5, escalator.calls[0])
}

func TestLoginMonitorOnLoginResult_ContinuedFailuresKeepEscalating(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	directive := failTimes(t, monitor, "192.0.2.1", 7)

	// Escalation fires on every attempt at or past the threshold; dedupe
	// into a single event happens downstream in the detection engine
	assert.False(t, directive.Proceed)
	assert.Equal(t, []int{5, 6, 7}, escalator.calls)
}

func TestLoginMonitorOnLoginResult_SuccessResetsEffectiveCount(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	failTimes(t, monitor, "192.0.2.1", 4)

	_, err := monitor.OnLoginResult(context.Background(), "192.0.2.1", "user@example.com", true, "test-agent")
	require.NoError(t, err)

	// Failures before the success no longer count toward the threshold
	directive := failTimes(t, monitor, "192.0.2.1", 4)

	assert.True(t, directive.Proceed)
	assert.Empty(t, escalator.calls)
}

func TestLoginMonitorOnLoginResult_OldFailuresOutsideWindowIgnored(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	reason := "invalid_credentials"
	for i := 0; i < 4; i++ {
		store.activities = append(store.activities, &models.LoginActivity{
			IPAddress:     "192.0.2.1",
			Success:       false,
			FailureReason: &reason,
			AttemptedAt:   time.Now().Add(-20 * time.Minute),
		})
	}

	directive := failTimes(t, monitor, "192.0.2.1", 1)

	assert.True(t, directive.Proceed)
	assert.Empty(t, escalator.calls)
}

func TestLoginMonitorOnLoginResult_AddressesAreIndependent(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	failTimes(t, monitor, "192.0.2.1", 4)
	directive := failTimes(t, monitor, "192.0.2.2", 1)

	assert.True(t, directive.Proceed)
	assert.Empty(t, escalator.calls)
}

func TestLoginMonitorOnLoginResult_FailsOpenOnCountError(t *testing.T) {
	store := &mockActivityStore{countErr: assert.AnError}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	directive, err := monitor.OnLoginResult(context.Background(), "192.0.2.1", "user@example.com", false, "test-agent")
	require.NoError(t, err)

	assert.True(t, directive.Proceed)
	assert.Empty(t, escalator.calls)
}

func TestLoginMonitorOnLoginResult_RecordFailureDoesNotBreakFlow(t *testing.T) {
	store := &mockActivityStore{recordErr: assert.AnError}
	escalator := &mockEscalator{}
	monitor := newTestLoginMonitor(store, escalator)

	directive, err := monitor.OnLoginResult(context.Background(), "192.0.2.1", "user@example.com", true, "test-agent")
	require.NoError(t, err)
	assert.True(t, directive.Proceed)
}

func TestLoginMonitorOnLoginResult_EscalatorErrorStillRejects(t *testing.T) {
	store := &mockActivityStore{}
	escalator := &mockEscalator{err: assert.AnError}
	monitor := newTestLoginMonitor(store, escalator)

	directive := failTimes(t, monitor, "192.0.2.1", 5)

	assert.False(t, directive.Proceed)
	assert.Equal(t, services.GenericLoginFailure, directive.Message)
}
