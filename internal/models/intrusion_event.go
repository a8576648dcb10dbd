package models

import "time"

// IntrusionType classifies a detected threat
type IntrusionType string

const (
	IntrusionBruteForce          IntrusionType = "brute_force"
	IntrusionSQLInjection        IntrusionType = "sql_injection"
	IntrusionXSSAttack           IntrusionType = "xss_attack"
	IntrusionDDoSAttack          IntrusionType = "ddos_attack"
	IntrusionPortScan            IntrusionType = "port_scan"
	IntrusionMalwareUpload       IntrusionType = "malware_upload"
	IntrusionPrivilegeEscalation IntrusionType = "privilege_escalation"
	IntrusionDataExfiltration    IntrusionType = "data_exfiltration"
	IntrusionSuspiciousActivity  IntrusionType = "suspicious_activity"
)

// Severity ranks how dangerous a detected threat is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsRejectable reports whether the gate should reject requests carrying
// threats of this severity. Medium and Low are log-and-continue.
func (s Severity) IsRejectable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// EventStatus tracks the review lifecycle of an intrusion event
type EventStatus string

const (
	EventStatusActive        EventStatus = "active"
	EventStatusBlocked       EventStatus = "blocked"
	EventStatusInvestigating EventStatus = "investigating"
	EventStatusResolved      EventStatus = "resolved"
	EventStatusFalsePositive EventStatus = "false_positive"
)

// ValidEventStatus reports whether s is a known review status
func ValidEventStatus(s string) bool {
	switch EventStatus(s) {
	case EventStatusActive, EventStatusBlocked, EventStatusInvestigating,
		EventStatusResolved, EventStatusFalsePositive:
		return true
	}
	return false
}

// ResponseAction records what the engine did about a threat
type ResponseAction string

const (
	ActionNone              ResponseAction = "none"
	ActionIPBlocked         ResponseAction = "ip_blocked"
	ActionUserSuspended     ResponseAction = "user_suspended"
	ActionSessionTerminated ResponseAction = "session_terminated"
	ActionAlertSent         ResponseAction = "alert_sent"
)

// RequestMetadata is the captured slice of the offending request.
// Payload is size-bounded before capture.
type RequestMetadata struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	UserAgent string            `json:"user_agent"`
	Headers   map[string]string `json:"headers,omitempty"`
	Payload   string            `json:"payload,omitempty"`
}

// IntrusionEvent is an immutable fact record of a detected threat.
// Core fields (Type, SourceAddress, CreatedAt) never change after insert;
// only Status and RepeatCount are updated.
type IntrusionEvent struct {
	ID             string          `db:"id"`
	SourceAddress  string          `db:"source_address"`
	TargetResource string          `db:"target_resource"`
	Type           IntrusionType   `db:"intrusion_type"`
	Severity       Severity        `db:"severity"`
	Status         EventStatus     `db:"status"`
	Description    string          `db:"description"`
	UserID         *string         `db:"user_id"`
	Location       *string         `db:"location"`
	Request        RequestMetadata `db:"-"`
	ActionTaken    ResponseAction  `db:"action_taken"`
	RepeatCount    int             `db:"repeat_count"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// TypeCount is an aggregate row for reporting queries
type TypeCount struct {
	Type  IntrusionType `json:"type"`
	Count int64         `json:"count"`
}

// SeverityCount is an aggregate row for reporting queries
type SeverityCount struct {
	Severity Severity `json:"severity"`
	Count    int64    `json:"count"`
}

// BucketCount is an aggregate row bucketed by time
type BucketCount struct {
	Bucket time.Time `json:"bucket"`
	Count  int64     `json:"count"`
}
