package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HollandReese/bulwark/internal/models"
	"github.com/HollandReese/bulwark/internal/repositories"
)

// BlockRegistryRepository defines the persistence operations the block
// service needs
type BlockRegistryRepository interface {
	GetActiveByAddress(ctx context.Context, address string) (*models.BlockedIP, error)
	Upsert(ctx context.Context, p repositories.BlockUpsertParams) (*models.BlockedIP, error)
	Deactivate(ctx context.Context, address, actor string) (*models.BlockedIP, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.BlockedIP, error)
	CountActive(ctx context.Context) (int64, error)
}

// BlockOptions carries the optional fields of a block action
type BlockOptions struct {
	BlockType models.BlockType
	Actor     *string
	Duration  *time.Duration // nil means permanent
	Location  *string
	Notes     *string
}

// BlockService is the single source of truth for "is this address blocked".
// Reads fail open so an infrastructure outage never turns into a full
// denial of service; writes propagate errors because block/unblock are
// deliberate actions.
type BlockService struct {
	repo   BlockRegistryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewBlockService creates a new BlockService
func NewBlockService(repo BlockRegistryRepository, logger *slog.Logger) *BlockService {
	return &BlockService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// IsBlocked reports whether an active, non-expired block exists for the
// address. Storage errors are treated as not-blocked and logged as a
// critical operational error.
func (s *BlockService) IsBlocked(ctx context.Context, address string) bool {
	block, err := s.repo.GetActiveByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false
		}
		s.logger.Error("block registry lookup failed, failing open",
			slog.String("ip_address", address),
			slog.Any("error", err))
		return false
	}

	return block.CurrentlyBlocked(s.now())
}

// Block upserts a block record for the address. A repeat block increments
// the violation count and refreshes reason and expiry. A nil Duration
// creates a permanent block.
func (s *BlockService) Block(ctx context.Context, address string, reason models.BlockReason, opts BlockOptions) (*models.BlockedIP, error) {
	if opts.BlockType == "" {
		opts.BlockType = models.BlockTypeAutomatic
	}

	var expiresAt *time.Time
	if opts.Duration != nil {
		t := s.now().Add(*opts.Duration)
		expiresAt = &t
	}

	block, err := s.repo.Upsert(ctx, repositories.BlockUpsertParams{
		IPAddress: address,
		Reason:    reason,
		BlockType: opts.BlockType,
		BlockedBy: opts.Actor,
		ExpiresAt: expiresAt,
		Location:  opts.Location,
		Notes:     opts.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to block address %s: %w", address, err)
	}

	s.logger.Warn("address blocked",
		slog.String("ip_address", address),
		slog.String("reason", string(reason)),
		slog.String("block_type", string(opts.BlockType)),
		slog.Int("violation_count", block.ViolationCount),
		slog.Any("expires_at", block.ExpiresAt))

	return block, nil
}

// Unblock deactivates the address's block and records the actor. Unknown
// addresses return ErrNotFound, which callers treat as a no-op.
func (s *BlockService) Unblock(ctx context.Context, address, actor string) (*models.BlockedIP, error) {
	block, err := s.repo.Deactivate(ctx, address, actor)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to unblock address %s: %w", address, err)
	}

	s.logger.Info("address unblocked",
		slog.String("ip_address", address),
		slog.String("actor", actor))

	return block, nil
}

// SweepExpired deactivates all active records whose expiry has passed.
// Runs on the background tick; idempotent.
func (s *BlockService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired blocks: %w", err)
	}

	if count > 0 {
		s.logger.Info("expired blocks deactivated", slog.Int64("count", count))
	}

	return count, nil
}

// ListActive returns the currently blocking records
func (s *BlockService) ListActive(ctx context.Context, limit, offset int) ([]*models.BlockedIP, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListActive(ctx, limit, offset)
}

// CountActive returns the number of currently blocking records
func (s *BlockService) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}
