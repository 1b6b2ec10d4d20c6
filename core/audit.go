package core

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventType identifies an auditable action in the query path.
type AuditEventType string

const (
	AuditQuerySubmitted          AuditEventType = "query_submitted"
	AuditQueryProcessed          AuditEventType = "query_processed"
	AuditQueryFailed             AuditEventType = "query_failed"
	AuditCacheHit                AuditEventType = "cache_hit"
	AuditCacheMiss               AuditEventType = "cache_miss"
	AuditValidationPassed        AuditEventType = "validation_passed"
	AuditValidationFailed        AuditEventType = "validation_failed"
	AuditPIIRedacted             AuditEventType = "pii_redacted"
	AuditPromptInjectionDetected AuditEventType = "prompt_injection_detected"
	AuditAnswerScreened          AuditEventType = "answer_screened"
	AuditNoEvidence              AuditEventType = "no_evidence"
	AuditEscalationCreated       AuditEventType = "escalation_created"
)

// AuditSeverity ranks audit events for compliance review.
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityCritical AuditSeverity = "critical"
)

// AuditEvent is a compliance record. Redactions, rejections, injection
// detections and terminal transitions all leave one behind.
type AuditEvent struct {
	ID         uuid.UUID
	QueryID    *uuid.UUID
	Type       AuditEventType
	Severity   AuditSeverity
	Detail     string
	OccurredAt time.Time
}

// NewAuditEvent builds an audit event stamped with the current time.
func NewAuditEvent(queryID *uuid.UUID, eventType AuditEventType, severity AuditSeverity, detail string) *AuditEvent {
	return &AuditEvent{
		ID:         uuid.New(),
		QueryID:    queryID,
		Type:       eventType,
		Severity:   severity,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}
