package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HollandReese/bulwark/internal/models"
)

// EventStore defines the persistence operations the detection engine needs
type EventStore interface {
	Create(ctx context.Context, event *models.IntrusionEvent) (*models.IntrusionEvent, error)
	FindRecent(ctx context.Context, address string, intrusionType models.IntrusionType, since time.Time) (*models.IntrusionEvent, error)
	IncrementRepeatCount(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
}

// BlockRegistry is the blocking surface the engine drives
type BlockRegistry interface {
	Block(ctx context.Context, address string, reason models.BlockReason, opts BlockOptions) (*models.BlockedIP, error)
}

// DetectionEngineConfig holds the engine's escalation tunables
type DetectionEngineConfig struct {
	AutoBlockDuration time.Duration
	DedupeWindow      time.Duration
}

// DetectionService orchestrates event recording, automatic blocking, and
// notifications. Event writes on the request path are best-effort: a failed
// write is logged and never fails the request that triggered it.
type DetectionService struct {
	events   EventStore
	blocks   BlockRegistry
	notifier Notifier
	logger   *slog.Logger
	cfg      DetectionEngineConfig
	now      func() time.Time
}

// NewDetectionService creates a new DetectionService
func NewDetectionService(events EventStore, blocks BlockRegistry, notifier Notifier, cfg DetectionEngineConfig, logger *slog.Logger) *DetectionService {
	if cfg.AutoBlockDuration <= 0 {
		cfg.AutoBlockDuration = 60 * time.Minute
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = 15 * time.Minute
	}
	return &DetectionService{
		events:   events,
		blocks:   blocks,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RecordContentThreat records exactly one event per detected content threat.
// A repeat detection for the same address and type within the dedupe window
// increments the existing event's repeat count instead of creating a second
// record. High and Critical severities trigger an administrator alert.
// Content matches alone never create block records; only brute force and
// rate escalation do.
func (s *DetectionService) RecordContentThreat(ctx context.Context, snapshot models.RequestSnapshot, threatType models.IntrusionType, severity models.Severity, signature string) {
	description := fmt.Sprintf("signature %s matched on %s %s", signature, snapshot.Method, snapshot.URL())

	event := &models.IntrusionEvent{
		SourceAddress:  snapshot.SourceAddress,
		TargetResource: snapshot.Path,
		Type:           threatType,
		Severity:       severity,
		Status:         models.EventStatusActive,
		Description:    description,
		Request:        snapshot.Metadata(),
		ActionTaken:    models.ActionNone,
		RepeatCount:    1,
	}

	created := s.recordEvent(ctx, event)

	if created && severity.IsRejectable() {
		s.notify(ctx, ThreatAlert{
			Type:          threatType,
			Severity:      severity,
			SourceAddress: snapshot.SourceAddress,
			Description:   description,
			Timestamp:     s.now(),
		})
	}
}

// EscalateRateAbuse handles a source that blew past the severe rate
// threshold. It runs off the request path: the in-flight request has
// already been rejected with 429, this records the ddos_attack event and
// auto-blocks the address.
func (s *DetectionService) EscalateRateAbuse(address string, snapshot models.RequestSnapshot, count int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	description := fmt.Sprintf("request rate severely exceeded (%d requests in window)", count)

	event := &models.IntrusionEvent{
		SourceAddress:  address,
		TargetResource: snapshot.Path,
		Type:           models.IntrusionDDoSAttack,
		Severity:       models.SeverityHigh,
		Status:         models.EventStatusBlocked,
		Description:    description,
		Request:        snapshot.Metadata(),
		ActionTaken:    models.ActionIPBlocked,
		RepeatCount:    1,
	}

	created := s.recordEvent(ctx, event)
	if !created {
		// Already escalated for this window; the block is in place
		return
	}

	duration := s.cfg.AutoBlockDuration
	if _, err := s.blocks.Block(ctx, address, models.BlockReasonDDoSAttack, BlockOptions{
		BlockType: models.BlockTypeAutomatic,
		Duration:  &duration,
	}); err != nil {
		s.logger.Error("failed to auto-block rate abuser",
			slog.String("ip_address", address),
			slog.Any("error", err))
	}

	s.notify(ctx, ThreatAlert{
		Type:          models.IntrusionDDoSAttack,
		Severity:      models.SeverityHigh,
		SourceAddress: address,
		Description:   description,
		Timestamp:     s.now(),
	})
}

// HandleBruteForce escalates a source that crossed the failed-login
// threshold: one event, one block record, one alert per violation window.
// Re-triggering inside the window increments the event's repeat count.
func (s *DetectionService) HandleBruteForce(ctx context.Context, address, identifier string, failureCount int) error {
	description := fmt.Sprintf("%d failed login attempts for %q within window", failureCount, identifier)

	event := &models.IntrusionEvent{
		SourceAddress:  address,
		TargetResource: "/auth/login",
		Type:           models.IntrusionBruteForce,
		Severity:       models.SeverityHigh,
		Status:         models.EventStatusBlocked,
		Description:    description,
		ActionTaken:    models.ActionIPBlocked,
		RepeatCount:    1,
	}

	created := s.recordEvent(ctx, event)
	if !created {
		return nil
	}

	duration := s.cfg.AutoBlockDuration
	if _, err := s.blocks.Block(ctx, address, models.BlockReasonBruteForce, BlockOptions{
		BlockType: models.BlockTypeAutomatic,
		Duration:  &duration,
	}); err != nil {
		return fmt.Errorf("failed to block brute force source %s: %w", address, err)
	}

	s.notify(ctx, ThreatAlert{
		Type:          models.IntrusionBruteForce,
		Severity:      models.SeverityHigh,
		SourceAddress: address,
		Description:   description,
		Timestamp:     s.now(),
	})

	return nil
}

// ReviewEvent transitions an event's status on behalf of an administrator
func (s *DetectionService) ReviewEvent(ctx context.Context, id string, status models.EventStatus) error {
	if err := s.events.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.logger.Info("event status updated",
		slog.String("event_id", id),
		slog.String("status", string(status)))
	return nil
}

// recordEvent creates the event or folds it into a recent one of the same
// address and type. Returns true when a new event was created. Storage
// errors are logged, not propagated: the detection log is best-effort.
func (s *DetectionService) recordEvent(ctx context.Context, event *models.IntrusionEvent) bool {
	since := s.now().Add(-s.cfg.DedupeWindow)

	existing, err := s.events.FindRecent(ctx, event.SourceAddress, event.Type, since)
	if err == nil {
		if err := s.events.IncrementRepeatCount(ctx, existing.ID); err != nil {
			s.logger.Error("failed to increment event repeat count",
				slog.String("event_id", existing.ID),
				slog.Any("error", err))
		}
		return false
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("event lookup failed, recording new event",
			slog.String("ip_address", event.SourceAddress),
			slog.Any("error", err))
	}

	if _, err := s.events.Create(ctx, event); err != nil {
		s.logger.Error("failed to persist intrusion event",
			slog.String("ip_address", event.SourceAddress),
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		// Best-effort: the rejection already happened, treat as recorded
	}
	return true
}

func (s *DetectionService) notify(ctx context.Context, alert ThreatAlert) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyThreat(ctx, alert)
}
