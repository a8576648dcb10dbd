package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HollandReese/bulwark/internal/models"
)

// EventAggregator defines the read-only aggregate queries over the event store
type EventAggregator interface {
	CountByType(ctx context.Context, since time.Time) ([]models.TypeCount, error)
	CountBySeverity(ctx context.Context, since time.Time) ([]models.SeverityCount, error)
	CountByDay(ctx context.Context, since time.Time) ([]models.BucketCount, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// BlockAggregator defines the read-only aggregate queries over the block registry
type BlockAggregator interface {
	CountActive(ctx context.Context) (int64, error)
	TopOffenders(ctx context.Context, since time.Time, limit int) ([]models.OffenderCount, error)
}

// EventReport groups event counts for the dashboard collaborator
type EventReport struct {
	Since      time.Time              `json:"since"`
	Total      int64                  `json:"total"`
	ByType     []models.TypeCount     `json:"by_type"`
	BySeverity []models.SeverityCount `json:"by_severity"`
	ByDay      []models.BucketCount   `json:"by_day"`
}

// SecuritySummary is the top-level dashboard snapshot
type SecuritySummary struct {
	ActiveBlocks int64                  `json:"active_blocks"`
	EventsLast24 int64                  `json:"events_last_24h"`
	TopOffenders []models.OffenderCount `json:"top_offenders"`
}

// ReportService serves the reporting/dashboard collaborator. These are the
// only external read paths into the subsystem's stores.
type ReportService struct {
	events EventAggregator
	blocks BlockAggregator
	now    func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(events EventAggregator, blocks BlockAggregator) *ReportService {
	return &ReportService{
		events: events,
		blocks: blocks,
		now:    time.Now,
	}
}

// EventReport aggregates event counts over the given lookback window
func (s *ReportService) EventReport(ctx context.Context, lookback time.Duration) (*EventReport, error) {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	since := s.now().Add(-lookback)

	total, err := s.events.CountSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	byType, err := s.events.CountByType(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events by type: %w", err)
	}

	bySeverity, err := s.events.CountBySeverity(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events by severity: %w", err)
	}

	byDay, err := s.events.CountByDay(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events by day: %w", err)
	}

	return &EventReport{
		Since:      since,
		Total:      total,
		ByType:     byType,
		BySeverity: bySeverity,
		ByDay:      byDay,
	}, nil
}

// Summary returns the active block count, 24h event total, and the top
// offending addresses of the last 24 hours
func (s *ReportService) Summary(ctx context.Context) (*SecuritySummary, error) {
	activeBlocks, err := s.blocks.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active blocks: %w", err)
	}

	since := s.now().Add(-24 * time.Hour)

	eventCount, err := s.events.CountSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	offenders, err := s.blocks.TopOffenders(ctx, since, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list top offenders: %w", err)
	}

	return &SecuritySummary{
		ActiveBlocks: activeBlocks,
		EventsLast24: eventCount,
		TopOffenders: offenders,
	}, nil
}

// TopOffenders returns the worst offending addresses over the last 24 hours
func (s *ReportService) TopOffenders(ctx context.Context, limit int) ([]models.OffenderCount, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.blocks.TopOffenders(ctx, s.now().Add(-24*time.Hour), limit)
}
