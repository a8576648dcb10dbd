package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HollandReese/bulwark/internal/models"
	"github.com/HollandReese/bulwark/internal/services"
)

type stubEventAggregator struct {
	total      int64
	byType     []models.TypeCount
	bySeverity []models.SeverityCount
	byDay      []models.BucketCount
	err        error

	lastSince time.Time
}

func (s *stubEventAggregator) CountByType(ctx context.Context, since time.Time) ([]models.TypeCount, error) {
	return s.byType, s.err
}

func (s *stubEventAggregator) CountBySeverity(ctx context.Context, since time.Time) ([]models.SeverityCount, error) {
	return s.bySeverity, s.err
}

func (s *stubEventAggregator) CountByDay(ctx context.Context, since time.Time) ([]models.BucketCount, error) {
	return s.byDay, s.err
}

func (s *stubEventAggregator) CountSince(ctx context.Context, since time.Time) (int64, error) {
	s.lastSince = since
	return s.total, s.err
}

type stubBlockAggregator struct {
	active    int64
	offenders []models.OffenderCount

	lastLimit int
}

func (s *stubBlockAggregator) CountActive(ctx context.Context) (int64, error) {
	return s.active, nil
}

func (s *stubBlockAggregator) TopOffenders(ctx context.Context, since time.Time, limit int) ([]models.OffenderCount, error) {
	s.lastLimit = limit
	return s.offenders, nil
}

func TestReportServiceEventReport(t *testing.T) {
	events := &stubEventAggregator{
		total: 42,
		byType: []models.TypeCount{
			{Type: models.IntrusionSQLInjection, Count: 30},
			{Type: models.IntrusionXSSAttack, Count: 12},
		},
		bySeverity: []models.SeverityCount{{Severity: models.SeverityHigh, Count: 30}},
	}
	service := services.NewReportService(events, &stubBlockAggregator{})

	now := time.Now()
	service.SetNow(func() time.Time { return now })

	report, err := service.EventReport(context.Background(), 6*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int64(42), report.Total)
	assert.Len(t, report.ByType, 2)
	assert.Equal(t, now.Add(-6*time.Hour), report.Since)
}

func TestReportServiceEventReport_DefaultsLookback(t *testing.T) {
	events := &stubEventAggregator{}
	service := services.NewReportService(events, &stubBlockAggregator{})

	now := time.Now()
	service.SetNow(func() time.Time { return now })

	report, err := service.EventReport(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, now.Add(-24*time.Hour), report.Since)
}

func TestReportServiceEventReport_PropagatesStoreErrors(t *testing.T) {
	events := &stubEventAggregator{err: assert.AnError}
	service := services.NewReportService(events, &stubBlockAggregator{})

	_, err := service.EventReport(context.Background(), time.Hour)
	assert.Error(t, err)
}

func TestReportServiceSummary(t *testing.T) {
	events := &stubEventAggregator{total: 17}
	blocks := &stubBlockAggregator{
		active: 3,
		offenders: []models.OffenderCount{
			{IPAddress: "203.0.113.5", ViolationCount: 9},
		},
	}
	service := services.NewReportService(events, blocks)

	summary, err := service.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.ActiveBlocks)
	assert.Equal(t, int64(17), summary.EventsLast24)
	require.Len(t, summary.TopOffenders, 1)
	assert.Equal(t, "203.0.113.5", summary.TopOffenders[0].IPAddress)
}

func TestReportServiceTopOffenders_ClampsLimit(t *testing.T) {
	blocks := &stubBlockAggregator{}
	service := services.NewReportService(&stubEventAggregator{}, blocks)

	_, err := service.TopOffenders(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, blocks.lastLimit)

	_, err = service.TopOffenders(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 10, blocks.lastLimit)

	_, err = service.TopOffenders(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 25, blocks.lastLimit)
}
