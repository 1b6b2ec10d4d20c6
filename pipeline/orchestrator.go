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


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/ai"
	"github.com/poiesic/ragflow/cache"
	"github.com/poiesic/ragflow/config"
	"github.com/poiesic/ragflow/core"
	"github.com/poiesic/ragflow/guardrails"
	"github.com/poiesic/ragflow/scoring"
	"github.com/poiesic/ragflow/storage"
)

// Retriever is the slice of the retrieval layer the orchestrator needs.
type Retriever interface {
	Retrieve(ctx context.Context, queryID uuid.UUID, vector []float32, collection string, topK int, minScore float64, filters map[string]string) ([]core.RetrievalResult, error)
}

// Job is one unit of work: a question to answer against a collection.
// TopK and ConfidenceThreshold override the configured defaults when
// non-zero.
type Job struct {
	QueryID             uuid.UUID
	QueryText           string
	CollectionName      string
	TopK                int
	ConfidenceThreshold float64
	CorrelationID       string
}

// Outcome is the terminal result of one orchestrator run.
type Outcome struct {
	QueryID      uuid.UUID
	Status       core.QueryStatus
	Reason       string
	AnswerID     *uuid.UUID
	EscalationID *uuid.UUID
	Confidence   float64
	CacheHit     bool
}

// Failure reason prefixes attached to failed outcomes.
const (
	reasonInputRejected    = "input_rejected"
	reasonTransientRetries = "transient_service_error_exhausted"
	reasonFatalService     = "fatal_service_error"
	reasonStorage          = "storage_error"
)

// Deps wires the orchestrator's collaborators. Cache may be nil to disable
// answer caching.
type Deps struct {
	Validator   *guardrails.Validator
	Embedder    ai.Embedder
	Retriever   Retriever
	Generator   ai.Generator
	Scorer      *scoring.Scorer
	Queries     storage.QueryRepository
	Answers     storage.AnswerRepository
	Escalations storage.EscalationRepository
	Audit       storage.AuditRepository
	Cache       cache.AnswerCache
}

// Orchestrator drives one query through validation, embedding, retrieval,
// generation and scoring to a terminal status. Each stage transition is
// persisted before the stage runs, so a crash leaves an inspectable record
// of where processing stopped. There is no resume: a stalled query needs
// redelivery.
type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(cfg *config.Config, deps Deps) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Validator == nil || deps.Embedder == nil || deps.Retriever == nil ||
		deps.Generator == nil || deps.Scorer == nil {
		return nil, errors.New("all pipeline components are required")
	}
	if deps.Queries == nil || deps.Answers == nil || deps.Escalations == nil || deps.Audit == nil {
		return nil, errors.New("all repositories are required")
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: slog.Default().With("component", "pipeline"),
	}, nil
}

// Run processes one job to a terminal status. The returned error is non-nil
// only when no terminal outcome could be recorded (storage unreachable);
// any recorded terminal state, including failed, returns a nil error so the
// caller can acknowledge the job.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Outcome, error) {
	started := time.Now()

	collection := job.CollectionName
	if collection == "" {
		collection = o.cfg.DefaultCollection
	}
	topK := job.TopK
	if topK <= 0 {
		topK = o.cfg.TopK
	}
	scorer := o.deps.Scorer
	if job.ConfidenceThreshold > 0 {
		scorer = scoring.NewScorer(job.ConfidenceThreshold)
	}

	queryID := job.QueryID
	if queryID == uuid.Nil {
		queryID = uuid.New()
	}
	query := &core.Query{
		ID:             queryID,
		RawText:        job.QueryText,
		SanitizedText:  guardrails.SanitizeText(job.QueryText),
		CollectionName: collection,
		SubmittedAt:    time.Now().UTC(),
		Status:         core.QueryStatusPending,
		CorrelationID:  job.CorrelationID,
	}
	if err := o.deps.Queries.CreateQuery(ctx, query); err != nil {
		return nil, fmt.Errorf("create query: %w", err)
	}
	o.record(ctx, queryID, core.AuditQuerySubmitted, core.AuditSeverityInfo,
		fmt.Sprintf("collection=%s", collection))

	outcome := &Outcome{QueryID: queryID}

	// Validation.
	if err := o.transition(ctx, queryID, core.QueryStatusValidating); err != nil {
		return nil, err
	}
	verdict := o.deps.Validator.Validate(ctx, queryID, job.QueryText)
	if verdict.Outcome == guardrails.OutcomeRejected {
		return o.fail(ctx, outcome, reasonInputRejected, verdict.Reason)
	}
	if err := o.deps.Validator.ValidateCollectionName(collection); err != nil {
		return o.fail(ctx, outcome, reasonInputRejected, err.Error())
	}
	question := verdict.SanitizedText
	validationStatus := core.ValidationPassed
	if verdict.Outcome == guardrails.OutcomeAcceptedWithWarnings {
		validationStatus = core.ValidationWarnings
	}

	// A cache hit short-circuits the external calls entirely.
	if o.deps.Cache != nil {
		cached, err := o.deps.Cache.Get(ctx, collection, question)
		if err != nil {
			o.logger.Warn("cache lookup failed", "queryID", queryID, "error", err)
		}
		if cached != nil {
			o.record(ctx, queryID, core.AuditCacheHit, core.AuditSeverityInfo, "")
			return o.completeFromCache(ctx, outcome, queryID, cached, validationStatus, started)
		}
		o.record(ctx, queryID, core.AuditCacheMiss, core.AuditSeverityInfo, "")
	}

	// Embedding.
	if err := o.transition(ctx, queryID, core.QueryStatusEmbedding); err != nil {
		return nil, err
	}
	vector, err := o.deps.Embedder.EmbedText(ctx, question)
	if err != nil {
		return o.failFromServiceError(ctx, outcome, "embedding", err)
	}

	// Retrieval.
	if err := o.transition(ctx, queryID, core.QueryStatusRetrieving); err != nil {
		return nil, err
	}
	retrievalStarted := time.Now()
	results, err := o.deps.Retriever.Retrieve(ctx, queryID, vector, collection, topK, o.cfg.MinScore, nil)
	if err != nil {
		return o.failFromServiceError(ctx, outcome, "retrieval", err)
	}
	retrievalMS := time.Since(retrievalStarted).Milliseconds()
	if len(results) > 0 {
		if err := o.deps.Queries.CreateRetrievalResults(ctx, results); err != nil {
			return o.fail(ctx, outcome, reasonStorage, err.Error())
		}
	} else {
		o.record(ctx, queryID, core.AuditNoEvidence, core.AuditSeverityWarning, core.ErrNoEvidence.Error())
	}

	// Generation. With no evidence the configuration decides between a
	// "no context" generation and skipping the generator entirely; either
	// way the zero-evidence clamp in the scorer forces an escalation.
	var gen *ai.GenerationResult
	var generationMS int64
	if len(results) > 0 || o.cfg.GenerateWithoutContext {
		if err := o.transition(ctx, queryID, core.QueryStatusGenerating); err != nil {
			return nil, err
		}
		generationStarted := time.Now()
		gen, err = o.deps.Generator.Generate(ctx, question, results)
		if err != nil {
			return o.failFromServiceError(ctx, outcome, "generation", err)
		}
		generationMS = time.Since(generationStarted).Milliseconds()
		if !gen.Safe {
			o.record(ctx, queryID, core.AuditAnswerScreened, core.AuditSeverityWarning,
				"answer replaced by refusal response")
			validationStatus = core.ValidationWarnings
		}
	}

	// Scoring and the escalation decision.
	if err := o.transition(ctx, queryID, core.QueryStatusScoring); err != nil {
		return nil, err
	}
	var confidence float64
	if gen != nil {
		confidence = scorer.Score(results, gen.AnswerText)
	} else {
		confidence = scorer.Score(results, "")
	}
	outcome.Confidence = confidence
	escalate, reason := scorer.ShouldEscalate(confidence, validationStatus)

	var answer *core.Answer
	if gen != nil {
		answer = &core.Answer{
			ID:               uuid.New(),
			QueryID:          queryID,
			AnswerText:       gen.AnswerText,
			ConfidenceScore:  confidence,
			ModelID:          gen.ModelID,
			InputTokens:      gen.PromptTokens,
			OutputTokens:     gen.CompletionTokens,
			RetrievalMS:      retrievalMS,
			GenerationMS:     generationMS,
			TotalMS:          time.Since(started).Milliseconds(),
			CacheHit:         false,
			Escalated:        escalate,
			ValidationStatus: validationStatus,
			GeneratedAt:      time.Now().UTC(),
		}
		if err := o.deps.Answers.CreateAnswer(ctx, answer); err != nil {
			return o.fail(ctx, outcome, reasonStorage, err.Error())
		}
		outcome.AnswerID = &answer.ID
	}

	if escalate {
		return o.escalate(ctx, outcome, queryID, answer, confidence, reason)
	}

	if o.deps.Cache != nil && answer != nil {
		record := &cache.Record{
			AnswerText:      answer.AnswerText,
			ConfidenceScore: answer.ConfidenceScore,
			ModelID:         answer.ModelID,
			InputTokens:     answer.InputTokens,
			OutputTokens:    answer.OutputTokens,
			GeneratedAt:     answer.GeneratedAt,
		}
		if err := o.deps.Cache.Set(ctx, collection, question, record); err != nil {
			o.logger.Warn("cache store failed", "queryID", queryID, "error", err)
		}
	}

	if err := o.transition(ctx, queryID, core.QueryStatusCompleted); err != nil {
		return nil, err
	}
	outcome.Status = core.QueryStatusCompleted
	o.record(ctx, queryID, core.AuditQueryProcessed, core.AuditSeverityInfo,
		fmt.Sprintf("confidence=%.3f", confidence))
	o.logger.Info("query completed", "queryID", queryID, "confidence", confidence,
		"totalMS", time.Since(started).Milliseconds())
	return outcome, nil
}

// transition persists a forward state change.
func (o *Orchestrator) transition(ctx context.Context, queryID uuid.UUID, status core.QueryStatus) error {
	if err := o.deps.Queries.UpdateQueryStatus(ctx, queryID, status); err != nil {
		return fmt.Errorf("transition to %s: %w", status, err)
	}
	return nil
}

// fail records a terminal failed state with a structured reason. The job is
// done from the broker's point of view; the nil error says so.
func (o *Orchestrator) fail(ctx context.Context, outcome *Outcome, kind, detail string) (*Outcome, error) {
	if err := o.transition(ctx, outcome.QueryID, core.QueryStatusFailed); err != nil {
		return nil, err
	}
	outcome.Status = core.QueryStatusFailed
	outcome.Reason = fmt.Sprintf("%s: %s", kind, detail)
	o.record(ctx, outcome.QueryID, core.AuditQueryFailed, core.AuditSeverityWarning, outcome.Reason)
	o.logger.Warn("query failed", "queryID", outcome.QueryID, "reason", outcome.Reason)
	return outcome, nil
}

func (o *Orchestrator) failFromServiceError(ctx context.Context, outcome *Outcome, stage string, err error) (*Outcome, error) {
	// A cancelled run context is the process going away, not a verdict
	// from the service. No terminal state is recorded, so the caller
	// nacks and the broker redelivers the query.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil, fmt.Errorf("%s interrupted: %w", stage, err)
	}
	kind := reasonFatalService
	if core.IsTransient(err) {
		kind = reasonTransientRetries
	}
	return o.fail(ctx, outcome, kind, fmt.Sprintf("%s: %v", stage, err))
}

// escalate records the escalation request and the terminal escalated state.
func (o *Orchestrator) escalate(ctx context.Context, outcome *Outcome, queryID uuid.UUID, answer *core.Answer, confidence float64, reason core.EscalationReason) (*Outcome, error) {
	escalation := &core.EscalationRequest{
		ID:               uuid.New(),
		QueryID:          queryID,
		Reason:           reason,
		ConfidenceScore:  confidence,
		PriorityScore:    core.PriorityFromConfidence(confidence),
		AssignmentStatus: core.AssignmentQueued,
		EscalatedAt:      time.Now().UTC(),
	}
	if answer != nil {
		escalation.AnswerID = &answer.ID
	}
	if err := o.deps.Escalations.CreateEscalation(ctx, escalation); err != nil {
		return o.fail(ctx, outcome, reasonStorage, err.Error())
	}
	if err := o.transition(ctx, queryID, core.QueryStatusEscalated); err != nil {
		return nil, err
	}
	outcome.Status = core.QueryStatusEscalated
	outcome.EscalationID = &escalation.ID
	o.record(ctx, queryID, core.AuditEscalationCreated, core.AuditSeverityWarning,
		fmt.Sprintf("reason=%s confidence=%.3f priority=%.0f", reason, confidence, escalation.PriorityScore))
	o.logger.Info("query escalated", "queryID", queryID, "reason", reason,
		"confidence", confidence, "priority", escalation.PriorityScore)
	return outcome, nil
}

// completeFromCache finishes a run from a cached answer without touching
// any external service.
func (o *Orchestrator) completeFromCache(ctx context.Context, outcome *Outcome, queryID uuid.UUID, cached *cache.Record, validationStatus core.ValidationStatus, started time.Time) (*Outcome, error) {
	answer := &core.Answer{
		ID:               uuid.New(),
		QueryID:          queryID,
		AnswerText:       cached.AnswerText,
		ConfidenceScore:  cached.ConfidenceScore,
		ModelID:          cached.ModelID,
		InputTokens:      cached.InputTokens,
		OutputTokens:     cached.OutputTokens,
		TotalMS:          time.Since(started).Milliseconds(),
		CacheHit:         true,
		ValidationStatus: validationStatus,
		GeneratedAt:      cached.GeneratedAt,
	}
	if err := o.deps.Answers.CreateAnswer(ctx, answer); err != nil {
		return o.fail(ctx, outcome, reasonStorage, err.Error())
	}
	if err := o.transition(ctx, queryID, core.QueryStatusCompleted); err != nil {
		return nil, err
	}
	outcome.Status = core.QueryStatusCompleted
	outcome.AnswerID = &answer.ID
	outcome.Confidence = cached.ConfidenceScore
	outcome.CacheHit = true
	o.logger.Info("query completed from cache", "queryID", queryID)
	return outcome, nil
}

func (o *Orchestrator) record(ctx context.Context, queryID uuid.UUID, eventType core.AuditEventType, severity core.AuditSeverity, detail string) {
	id := queryID
	event := core.NewAuditEvent(&id, eventType, severity, detail)
	if err := o.deps.Audit.Record(ctx, event); err != nil {
		o.logger.Warn("audit record failed", "queryID", queryID, "event", eventType, "error", err)
	}
}
