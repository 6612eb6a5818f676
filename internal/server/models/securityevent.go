package models

import (
	"encoding/json"
	"time"
)

// EventType tags a security audit record.
type EventType string

const (
	EventTokenGenerated        EventType = "token_generated"
	EventTokenGenerationFailed EventType = "token_generation_failed"
	EventBlockedIPAttempt      EventType = "blocked_ip_attempt"
	EventInvalidToken          EventType = "invalid_token"
	EventTokenValidated        EventType = "token_validated"
	EventTokenValidationError  EventType = "token_validation_error"
	EventTokenUsed             EventType = "token_used"
	EventTokenUsageError       EventType = "token_usage_error"
	EventTokenExtended         EventType = "token_extended"
	EventTokensCleaned         EventType = "tokens_cleaned"
	EventIPBlocked             EventType = "ip_blocked"
)

// Severity grades a security event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SecurityEvent is an append-only audit record.
//
// BlockedUntil is only set on ip_blocked events and is informational: the
// fraud guard decides blocking from the rolling count of invalid_token
// events, never from this column.
type SecurityEvent struct {
	ID           int64           `json:"id"`
	IPAddress    string          `json:"ip_address"`
	EventType    EventType       `json:"event_type"`
	Details      json.RawMessage `json:"details"`
	Severity     Severity        `json:"severity"`
	BlockedUntil *time.Time      `json:"blocked_until,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
