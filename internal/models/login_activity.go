package models

import "time"

// LoginActivity represents a single login outcome reported by the
// authentication flow
type LoginActivity struct {
	ID            string    `db:"id"`
	IPAddress     string    `db:"ip_address"`
	Identifier    string    `db:"identifier"`
	Success       bool      `db:"success"`
	FailureReason *string   `db:"failure_reason"`
	UserAgent     string    `db:"user_agent"`
	AttemptedAt   time.Time `db:"attempted_at"`
}
