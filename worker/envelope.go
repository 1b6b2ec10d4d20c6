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


package worker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/pipeline"
)

// Envelope is the broker message schema for one query job. Zero values for
// the optional fields mean "use the configured default".
type Envelope struct {
	MessageID           string  `json:"message_id"`
	QueryID             string  `json:"query_id,omitempty"`
	QueryText           string  `json:"query_text"`
	CollectionName      string  `json:"collection_name,omitempty"`
	MaxChunks           int     `json:"max_chunks,omitempty"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
	RetryCount          int     `json:"retry_count,omitempty"`
	CorrelationID       string  `json:"correlation_id,omitempty"`
}

// ParseEnvelope decodes and validates a broker message body. A failure here
// means the message can never be processed and belongs on the dead-letter
// path.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if strings.TrimSpace(e.QueryText) == "" {
		return nil, fmt.Errorf("%w: query_text is empty", ErrMalformedMessage)
	}
	if e.QueryID != "" {
		if _, err := uuid.Parse(e.QueryID); err != nil {
			return nil, fmt.Errorf("%w: query_id %q is not a UUID", ErrMalformedMessage, e.QueryID)
		}
	}
	if e.MaxChunks < 0 {
		return nil, fmt.Errorf("%w: max_chunks %d is negative", ErrMalformedMessage, e.MaxChunks)
	}
	if e.ConfidenceThreshold < 0 || e.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("%w: confidence_threshold %f out of range", ErrMalformedMessage, e.ConfidenceThreshold)
	}
	return &e, nil
}

// Job converts the envelope into a pipeline job.
func (e *Envelope) Job() pipeline.Job {
	var queryID uuid.UUID
	if e.QueryID != "" {
		queryID, _ = uuid.Parse(e.QueryID)
	}
	return pipeline.Job{
		QueryID:             queryID,
		QueryText:           e.QueryText,
		CollectionName:      e.CollectionName,
		TopK:                e.MaxChunks,
		ConfidenceThreshold: e.ConfidenceThreshold,
		CorrelationID:       e.CorrelationID,
	}
}
