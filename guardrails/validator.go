// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package guardrails

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/config"
	"github.com/poiesic/ragflow/core"
)

// Outcome is the validation verdict for one piece of input.
type Outcome string

const (
	// OutcomeAccepted means the input passed all checks unchanged.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeAcceptedWithWarnings means PII was redacted before acceptance.
	OutcomeAcceptedWithWarnings Outcome = "accepted_with_warnings"
	// OutcomeRejected means the input is terminally refused: too short, too
	// long, or carrying injection patterns. Rejection is never retried.
	OutcomeRejected Outcome = "rejected"
)

// Result carries the verdict, the sanitized text safe for downstream
// components, and the redactions applied to produce it.
type Result struct {
	Outcome       Outcome
	SanitizedText string
	Reason        string
	Redactions    []Redaction
}

// Redaction records one PII replacement.
type Redaction struct {
	// Type is the placeholder category: EMAIL, PHONE or DOCUMENT.
	Type string
	// Count is the number of matches replaced.
	Count int
}

// AuditSink receives audit events for redactions and rejections.
type AuditSink interface {
	Record(ctx context.Context, event *core.AuditEvent) error
}

// Validator sanitizes and accepts or rejects raw question text before it
// reaches any external service.
type Validator struct {
	minLength int
	maxLength int
	audit     AuditSink
	logger    *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator creates a validator bound to the configured length limits.
// The audit sink is required: every redaction and rejection must leave a
// compliance record.
func NewValidator(cfg *config.Config, audit AuditSink, opts ...Option) (*Validator, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if audit == nil {
		return nil, ErrAuditSinkRequired
	}
	v := &Validator{
		minLength: cfg.MinQueryLength,
		maxLength: cfg.MaxQueryLength,
		audit:     audit,
		logger:    slog.Default().With("component", "guardrails"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate sanitizes raw question text and returns a verdict. It never
// returns an error for in-range input; malformed input maps to
// OutcomeRejected, not to an error.
//
// Over-length input is rejected rather than truncated: cutting a question
// short could silently change what is being asked.
func (v *Validator) Validate(ctx context.Context, queryID uuid.UUID, raw string) Result {
	sanitized := SanitizeText(raw)

	if sanitized == "" {
		return v.reject(ctx, queryID, "query cannot be empty")
	}
	// Bounds are in characters, not bytes; accented text must not hit
	// the ceiling early.
	length := utf8.RuneCountInString(sanitized)
	if length < v.minLength {
		return v.reject(ctx, queryID, fmt.Sprintf("query too short (minimum %d characters)", v.minLength))
	}
	if length > v.maxLength {
		return v.reject(ctx, queryID, fmt.Sprintf("query too long (maximum %d characters)", v.maxLength))
	}

	if reason, found := detectInjection(sanitized); found {
		v.logger.Warn("injection attempt detected", "queryID", queryID, "reason", reason)
		v.record(ctx, queryID, core.AuditPromptInjectionDetected, core.AuditSeverityCritical, reason)
		return v.reject(ctx, queryID, reason)
	}

	redacted, redactions := RedactPII(sanitized)
	if len(redactions) > 0 {
		for _, r := range redactions {
			v.logger.Warn("PII redacted from query", "queryID", queryID, "type", r.Type, "count", r.Count)
			v.record(ctx, queryID, core.AuditPIIRedacted, core.AuditSeverityWarning,
				fmt.Sprintf("%s x%d", r.Type, r.Count))
		}
		return Result{
			Outcome:       OutcomeAcceptedWithWarnings,
			SanitizedText: redacted,
			Redactions:    redactions,
		}
	}

	return Result{Outcome: OutcomeAccepted, SanitizedText: sanitized}
}

// ValidateCollectionName checks that a collection name is usable as a
// vector-store scope: non-empty, bounded, alphanumeric with underscores
// and hyphens only.
func (v *Validator) ValidateCollectionName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if len(trimmed) > 100 {
		return fmt.Errorf("%w: collection name too long (maximum 100 characters)", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(trimmed) {
		return fmt.Errorf("%w: only alphanumeric characters, underscores and hyphens are allowed", ErrInvalidCollectionName)
	}
	return nil
}

// SanitizeText normalizes whitespace and strips NUL bytes.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Join(strings.Fields(text), " ")
}

func (v *Validator) reject(ctx context.Context, queryID uuid.UUID, reason string) Result {
	v.record(ctx, queryID, core.AuditValidationFailed, core.AuditSeverityWarning, reason)
	return Result{Outcome: OutcomeRejected, Reason: reason}
}

func (v *Validator) record(ctx context.Context, queryID uuid.UUID, eventType core.AuditEventType, severity core.AuditSeverity, detail string) {
	event := core.NewAuditEvent(&queryID, eventType, severity, detail)
	if err := v.audit.Record(ctx, event); err != nil {
		// An audit write failure must not turn a validation verdict into a
		// pipeline failure; the verdict still stands.
		v.logger.Error("failed to record audit event", "type", eventType, "err", err)
	}
}
