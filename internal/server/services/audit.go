package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/dmitrijs2005/claimkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/securitylog"
)

// EventPublisher mirrors persisted security events to an external stream.
type EventPublisher interface {
	PublishSecurityEvent(ctx context.Context, event *models.SecurityEvent) error
}

// AuditLog appends security events. A failed write is reported to the
// fallback logger and returned; callers in this package discard it.
type AuditLog struct {
	repo      securitylog.Repository
	clock     Clock
	logger    logging.Logger
	publisher EventPublisher
	metrics   *metrics.ClaimMetrics
}

func NewAuditLog(repo securitylog.Repository, clock Clock, logger logging.Logger, publisher EventPublisher, m *metrics.ClaimMetrics) *AuditLog {
	return &AuditLog{
		repo:      repo,
		clock:     clock,
		logger:    logger.With("module", "audit"),
		publisher: publisher,
		metrics:   m,
	}
}

// Record appends one event. An empty severity means medium.
func (a *AuditLog) Record(ctx context.Context, ip string, eventType models.EventType, details map[string]any, severity models.Severity) error {
	return a.write(ctx, ip, eventType, details, severity, nil)
}

// RecordBlock appends an ip_blocked event. blockedUntil is stored for
// operators only.
func (a *AuditLog) RecordBlock(ctx context.Context, ip string, details map[string]any, blockedUntil time.Time) error {
	return a.write(ctx, ip, models.EventIPBlocked, details, models.SeverityHigh, &blockedUntil)
}

func (a *AuditLog) write(ctx context.Context, ip string, eventType models.EventType, details map[string]any, severity models.Severity, blockedUntil *time.Time) error {
	if severity == "" {
		severity = models.SeverityMedium
	}
	if details == nil {
		details = map[string]any{}
	}

	payload, err := json.Marshal(details)
	if err != nil {
		a.metrics.RecordAuditWriteError()
		a.logger.Error(ctx, "security event not serializable", "event_type", eventType, "ip", ip, "error", err)
		return fmt.Errorf("marshal details: %w", err)
	}

	event := &models.SecurityEvent{
		IPAddress:    ip,
		EventType:    eventType,
		Details:      payload,
		Severity:     severity,
		BlockedUntil: blockedUntil,
		CreatedAt:    a.clock.Now(),
	}

	if err := a.repo.Create(ctx, event); err != nil {
		a.metrics.RecordAuditWriteError()
		a.logger.Error(ctx, "security event not persisted",
			"event_type", eventType, "severity", severity, "ip", ip, "details", string(payload), "error", err)
		return fmt.Errorf("persist security event: %w", err)
	}

	a.metrics.RecordSecurityEvent(string(eventType), string(severity))

	if a.publisher != nil {
		if err := a.publisher.PublishSecurityEvent(ctx, event); err != nil {
			a.logger.Warn(ctx, "security event not published", "event_type", eventType, "id", event.ID, "error", err)
		}
	}

	return nil
}
