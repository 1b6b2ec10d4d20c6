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


package scoring

import (
	"math"
	"strings"

	"github.com/poiesic/ragflow/core"
)

// fullCoverageSources is the evidence count at which the source factor
// saturates. Fewer sources scale it down linearly.
const fullCoverageSources = 5

// Phrases the completion model uses when the context does not support an
// answer. Any of these collapses confidence regardless of similarity.
var uncertaintyPhrases = []string{
	"não tenho informações",
	"não há informações",
	"contexto não contém",
	"não posso responder",
	"não tenho informações suficientes na base de conhecimento",
}

// Scorer computes answer confidence and the escalation decision. It is
// pure: no I/O, no state, same inputs always give the same score.
type Scorer struct {
	threshold float64
}

// NewScorer creates a scorer with the given escalation threshold.
func NewScorer(threshold float64) *Scorer {
	return &Scorer{threshold: threshold}
}

// Threshold returns the configured escalation threshold.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score computes the confidence for an answer in [0,1]. The score combines
// the mean similarity of the evidence set with a source-count factor; an
// answer that expresses uncertainty is scored down to a fraction of the
// similarity term alone. With no evidence at all, confidence is 0.
func (s *Scorer) Score(results []core.RetrievalResult, answerText string) float64 {
	if len(results) == 0 {
		return 0
	}

	var sum float64
	for _, r := range results {
		sum += r.SimilarityScore
	}
	avgSimilarity := sum / float64(len(results))
	sourceFactor := math.Min(float64(len(results))/fullCoverageSources, 1.0)

	var confidence float64
	if expressesUncertainty(answerText) {
		confidence = avgSimilarity * 0.3
	} else {
		confidence = avgSimilarity*0.7 + sourceFactor*0.3
	}
	return math.Round(confidence*1000) / 1000
}

// ShouldEscalate reports whether the query must be routed to human support,
// and the reason. Validation failure escalates regardless of confidence.
func (s *Scorer) ShouldEscalate(confidence float64, validation core.ValidationStatus) (bool, core.EscalationReason) {
	if validation == core.ValidationFailed {
		return true, core.EscalationValidationFailure
	}
	if confidence < s.threshold {
		return true, core.EscalationLowConfidence
	}
	return false, ""
}

func expressesUncertainty(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
