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

type mockEventStore struct {
	events []*models.IntrusionEvent

	findErr   error
	createErr error

	incrementCalls []string
	statusCalls    map[string]models.EventStatus
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{statusCalls: make(map[string]models.EventStatus)}
}

func (m *mockEventStore) Create(ctx context.Context, event *models.IntrusionEvent) (*models.IntrusionEvent, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now()
	m.events = append(m.events, event)
	return event, nil
}

func (m *mockEventStore) FindRecent(ctx context.Context, address string, intrusionType models.IntrusionType, since time.Time) (*models.IntrusionEvent, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.SourceAddress == address && e.Type == intrusionType && e.CreatedAt.After(since) {
			return e, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *mockEventStore) IncrementRepeatCount(ctx context.Context, id string) error {
	m.incrementCalls = append(m.incrementCalls, id)
	for _, e := range m.events {
		if e.ID == id {
			e.RepeatCount++
		}
	}
	return nil
}

func (m *mockEventStore) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	m.statusCalls[id] = status
	return nil
}

type mockBlockRegistry struct {
	blockErr   error
	blockCalls []string
	lastReason models.BlockReason
	lastOpts   services.BlockOptions
}

func (m *mockBlockRegistry) Block(ctx context.Context, address string, reason models.BlockReason, opts services.BlockOptions) (*models.BlockedIP, error) {
	if m.blockErr != nil {
		return nil, m.blockErr
	}
	m.blockCalls = append(m.blockCalls, address)
	m.lastReason = reason
	m.lastOpts = opts
	return &models.BlockedIP{IPAddress: address, Reason: reason, Active: true}, nil
}

type mockNotifier struct {
	alerts []services.ThreatAlert
}

func (m *mockNotifier) NotifyThreat(_ context.Context, alert services.ThreatAlert) {
	m.alerts = append(m.alerts, alert)
}

func newTestDetectionService(events *mockEventStore, blocks *mockBlockRegistry, notifier *mockNotifier) *services.DetectionService {
	return services.NewDetectionService(events, blocks, notifier, services.DetectionEngineConfig{
		AutoBlockDuration: time.Hour,
		DedupeWindow:      15 * time.Minute,
	}, testLogger())
}

func threatSnapshot(address string) models.RequestSnapshot {
	return models.RequestSnapshot{
		SourceAddress: address,
		Method:        "GET",
		Path:          "/api/search",
		RawQuery:      "q=1 UNION SELECT secret FROM vault",
		UserAgent:     "test-agent",
	}
}

func TestDetectionServiceRecordContentThreat_CreatesEventAndAlerts(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	service.RecordContentThreat(context.Background(), threatSnapshot("203.0.113.5"),
		models.IntrusionSQLInjection, models.SeverityHigh, "sqli_union_select")

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, "203.0.113.5", event.SourceAddress)
	assert.Equal(t, models.IntrusionSQLInjection, event.Type)
	assert.Equal(t, models.SeverityHigh, event.Severity)
	assert.Equal(t, models.EventStatusActive, event.Status)
	assert.Equal(t, 1, event.RepeatCount)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, models.IntrusionSQLInjection, notifier.alerts[0].Type)

	assert.Empty(t, blocks.blockCalls, "content matches alone never block")
}

func TestDetectionServiceRecordContentThreat_DedupesWithinWindow(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	for i := 0; i < 3; i++ {
		service.RecordContentThreat(context.Background(), threatSnapshot("203.0.113.5"),
			models.IntrusionSQLInjection, models.SeverityHigh, "sqli_union_select")
	}

	require.Len(t, events.events, 1, "repeats within the window fold into one event")
	assert.Equal(t, 3, events.events[0].RepeatCount)
	assert.Len(t, notifier.alerts, 1, "only the first detection alerts")
}

func TestDetectionServiceRecordContentThreat_SeparateEventsPerType(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	service.RecordContentThreat(context.Background(), threatSnapshot("203.0.113.5"),
		models.IntrusionSQLInjection, models.SeverityHigh, "sqli_union_select")
	service.RecordContentThreat(context.Background(), threatSnapshot("203.0.113.5"),
		models.IntrusionXSSAttack, models.SeverityMedium, "xss_script_tag")

	assert.Len(t, events.events, 2)
}

func TestDetectionServiceRecordContentThreat_MediumSeverityDoesNotAlert(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	service.RecordContentThreat(context.Background(), threatSnapshot("203.0.113.5"),
		models.IntrusionXSSAttack, models.SeverityMedium, "xss_script_tag")

	assert.Len(t, events.events, 1)
	assert.Empty(t, notifier.alerts)
}

func TestDetectionServiceRecordContentThreat_CreateFailureDoesNotPanic(t *testing.T) {
	events := newMockEventStore()
	events.createErr = assert.AnError
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	service.RecordContentThreat(context.Background(), threatSnapshot("203.0.113.5"),
		models.IntrusionSQLInjection, models.SeverityHigh, "sqli_union_select")

	assert.Empty(t, events.events)
}

func TestDetectionServiceEscalateRateAbuse_BlocksAndAlerts(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	service.EscalateRateAbuse("198.51.100.7", models.RequestSnapshot{
		SourceAddress: "198.51.100.7",
		Method:        "GET",
		Path:          "/api/orders",
	}, 250)

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, models.IntrusionDDoSAttack, event.Type)
	assert.Equal(t, models.SeverityHigh, event.Severity)
	assert.Equal(t, models.ActionIPBlocked, event.ActionTaken)

	require.Len(t, blocks.blockCalls, 1)
	assert.Equal(t, "198.51.100.7", blocks.blockCalls[0])
	assert.Equal(t, models.BlockReasonDDoSAttack, blocks.lastReason)
	require.NotNil(t, blocks.lastOpts.Duration)
	assert.Equal(t, time.Hour, *blocks.lastOpts.Duration)

	assert.Len(t, notifier.alerts, 1)
}

func TestDetectionServiceEscalateRateAbuse_SecondEscalationIsNoOp(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	snapshot := models.RequestSnapshot{SourceAddress: "198.51.100.7", Path: "/api/orders"}
	service.EscalateRateAbuse("198.51.100.7", snapshot, 250)
	service.EscalateRateAbuse("198.51.100.7", snapshot, 260)

	assert.Len(t, events.events, 1)
	assert.Equal(t, 2, events.events[0].RepeatCount)
	assert.Len(t, blocks.blockCalls, 1, "the block is already in place")
	assert.Len(t, notifier.alerts, 1)
}

func TestDetectionServiceHandleBruteForce_OneEventOneBlockOneAlert(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	err := service.HandleBruteForce(context.Background(), "192.0.2.10", "victim@example.com", 5)
	require.NoError(t, err)

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, models.IntrusionBruteForce, event.Type)
	assert.Equal(t, models.EventStatusBlocked, event.Status)
	assert.Equal(t, "/auth/login", event.TargetResource)

	require.Len(t, blocks.blockCalls, 1)
	assert.Equal(t, models.BlockReasonBruteForce, blocks.lastReason)
	assert.Len(t, notifier.alerts, 1)
}

func TestDetectionServiceHandleBruteForce_RepeatIncrementsInsteadOfDuplicating(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	require.NoError(t, service.HandleBruteForce(context.Background(), "192.0.2.10", "victim@example.com", 5))
	require.NoError(t, service.HandleBruteForce(context.Background(), "192.0.2.10", "victim@example.com", 6))
	require.NoError(t, service.HandleBruteForce(context.Background(), "192.0.2.10", "victim@example.com", 7))

	assert.Len(t, events.events, 1, "continued failures fold into the original event")
	assert.Equal(t, 3, events.events[0].RepeatCount)
	assert.Len(t, blocks.blockCalls, 1)
	assert.Len(t, notifier.alerts, 1)
}

func TestDetectionServiceHandleBruteForce_BlockFailurePropagates(t *testing.T) {
	events := newMockEventStore()
	blocks := &mockBlockRegistry{blockErr: assert.AnError}
	notifier := &mockNotifier{}
	service := newTestDetectionService(events, blocks, notifier)

	err := service.HandleBruteForce(context.Background(), "192.0.2.10", "victim@example.com", 5)
	assert.Error(t, err)
	assert.Empty(t, notifier.alerts, "no alert when the block was not applied")
}

func TestDetectionServiceReviewEvent(t *testing.T) {
	events := newMockEventStore()
	service := newTestDetectionService(events, &mockBlockRegistry{}, &mockNotifier{})

	err := service.ReviewEvent(context.Background(), "event-1", models.EventStatusFalsePositive)
	require.NoError(t, err)

	assert.Equal(t, models.EventStatusFalsePositive, events.statusCalls["event-1"])
}
