package core

import (
	"time"

	"github.com/google/uuid"
)

// QueryStatus tracks a query through the processing pipeline.
type QueryStatus string

const (
	// QueryStatusPending means the query has been accepted but not picked up yet.
	QueryStatusPending QueryStatus = "pending"
	// Stage statuses. Each is persisted before the stage runs, so a crashed
	// process leaves an inspectable record of where it stopped.
	QueryStatusValidating QueryStatus = "validating"
	QueryStatusEmbedding  QueryStatus = "embedding"
	QueryStatusRetrieving QueryStatus = "retrieving"
	QueryStatusGenerating QueryStatus = "generating"
	QueryStatusScoring    QueryStatus = "scoring"
	// QueryStatusCompleted means processing finished with exactly one Answer.
	QueryStatusCompleted QueryStatus = "completed"
	// QueryStatusFailed means processing reached a terminal failure.
	QueryStatusFailed QueryStatus = "failed"
	// QueryStatusEscalated means the query was routed to human support.
	QueryStatusEscalated QueryStatus = "escalated"
)

// Terminal reports whether the status is final. A query in a terminal
// status is immutable.
func (s QueryStatus) Terminal() bool {
	return s == QueryStatusCompleted || s == QueryStatusFailed || s == QueryStatusEscalated
}

// Query represents one user question moving through the pipeline.
// It is created on ingress and mutated only by the orchestrator until
// it reaches a terminal status.
type Query struct {
	ID             uuid.UUID
	RawText        string
	SanitizedText  string
	Language       string
	CollectionName string
	SubmittedAt    time.Time
	Status         QueryStatus
	CorrelationID  string
}

// Chunk is a bounded segment of source-document text with its embedding.
// Chunks are created during ingestion and never mutated by the query path.
type Chunk struct {
	ID               uuid.UUID
	DocumentID       uuid.UUID
	TextContent      string
	Embedding        []float32
	SequencePosition int
	TokenCount       int
	StartOffset      int
	EndOffset        int
	Metadata         map[string]string
}

// RetrievalResult is one retrieved passage for a query, joined with its
// chunk text. Rank is 1-indexed and unique per query; results are ordered
// by rank ascending, best first.
type RetrievalResult struct {
	QueryID         uuid.UUID
	ChunkID         uuid.UUID
	TextContent     string
	Metadata        map[string]string
	SimilarityScore float64
	Rank            int
	RerankScore     *float64
}

// ValidationStatus records the input-validation outcome attached to an Answer.
type ValidationStatus string

const (
	ValidationPassed   ValidationStatus = "passed"
	ValidationFailed   ValidationStatus = "failed"
	ValidationWarnings ValidationStatus = "warnings"
)

// Answer is the generated response for a query (1:1). Immutable after creation.
type Answer struct {
	ID               uuid.UUID
	QueryID          uuid.UUID
	AnswerText       string
	ConfidenceScore  float64
	ModelID          string
	InputTokens      int
	OutputTokens     int
	RetrievalMS      int64
	GenerationMS     int64
	TotalMS          int64
	CacheHit         bool
	Escalated        bool
	ValidationStatus ValidationStatus
	GeneratedAt      time.Time
}

// EscalationReason explains why a query was routed to human support.
type EscalationReason string

const (
	EscalationLowConfidence     EscalationReason = "low_confidence"
	EscalationValidationFailure EscalationReason = "validation_failure"
	EscalationUserRequest       EscalationReason = "user_request"
)

// AssignmentStatus tracks an escalation through the human-support queue.
// Only "queued" is ever written by this system; the rest are mutated by
// the support collaborator.
type AssignmentStatus string

const (
	AssignmentQueued   AssignmentStatus = "queued"
	AssignmentAssigned AssignmentStatus = "assigned"
	AssignmentResolved AssignmentStatus = "resolved"
)

// EscalationRequest routes a query (with whatever answer context exists)
// to a human collaborator.
type EscalationRequest struct {
	ID               uuid.UUID
	QueryID          uuid.UUID
	AnswerID         *uuid.UUID
	Reason           EscalationReason
	ConfidenceScore  float64
	PriorityScore    float64
	AssignmentStatus AssignmentStatus
	EscalatedAt      time.Time
}

// PriorityFromConfidence maps a confidence score to an escalation priority
// in [0,100]. Lower confidence means higher urgency; a validation failure
// (confidence 0) lands at the top of the support queue.
func PriorityFromConfidence(confidence float64) float64 {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return (1 - confidence) * 100
}
