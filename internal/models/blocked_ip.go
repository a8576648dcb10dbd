package models

import "time"

// BlockReason explains why an address was blocked
type BlockReason string

const (
	BlockReasonBruteForce         BlockReason = "brute_force_attack"
	BlockReasonSQLInjection       BlockReason = "sql_injection"
	BlockReasonXSSAttack          BlockReason = "xss_attack"
	BlockReasonDDoSAttack         BlockReason = "ddos_attack"
	BlockReasonSuspiciousActivity BlockReason = "suspicious_activity"
	BlockReasonManual             BlockReason = "manual_block"
	BlockReasonRepeatedViolations BlockReason = "repeated_violations"
)

// ValidBlockReason reports whether r is a known block reason
func ValidBlockReason(r string) bool {
	switch BlockReason(r) {
	case BlockReasonBruteForce, BlockReasonSQLInjection, BlockReasonXSSAttack,
		BlockReasonDDoSAttack, BlockReasonSuspiciousActivity,
		BlockReasonManual, BlockReasonRepeatedViolations:
		return true
	}
	return false
}

// BlockType distinguishes engine-initiated blocks from administrator ones
type BlockType string

const (
	BlockTypeAutomatic BlockType = "automatic"
	BlockTypeManual    BlockType = "manual"
)

// BlockedIP is the mutable current-state record of an address's block status.
// At most one record exists per address (upsert semantics); records are
// deactivated, never deleted.
type BlockedIP struct {
	ID             string      `db:"id"`
	IPAddress      string      `db:"ip_address"`
	Reason         BlockReason `db:"reason"`
	BlockType      BlockType   `db:"block_type"`
	BlockedBy      *string     `db:"blocked_by"`
	ExpiresAt      *time.Time  `db:"expires_at"` // nil means permanent
	Active         bool        `db:"active"`
	ViolationCount int         `db:"violation_count"`
	Location       *string     `db:"location"`
	Notes          *string     `db:"notes"`
	LastAttemptAt  time.Time   `db:"last_attempt_at"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// CurrentlyBlocked reports whether the record blocks traffic at the given instant
func (b *BlockedIP) CurrentlyBlocked(now time.Time) bool {
	if !b.Active {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// OffenderCount is an aggregate row for the top-offenders report
type OffenderCount struct {
	IPAddress      string `json:"ip_address"`
	ViolationCount int    `json:"violation_count"`
}
