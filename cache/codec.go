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


package cache

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// MarshalRecord serializes a Record to MUS bytes.
func MarshalRecord(record *Record) []byte {
	generatedAt := record.GeneratedAt.UnixMilli()
	size := ord.String.Size(record.AnswerText) +
		raw.Float64.Size(record.ConfidenceScore) +
		ord.String.Size(record.ModelID) +
		varint.Int.Size(record.InputTokens) +
		varint.Int.Size(record.OutputTokens) +
		varint.Int64.Size(generatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(record.AnswerText, buf)
	n += raw.Float64.Marshal(record.ConfidenceScore, buf[n:])
	n += ord.String.Marshal(record.ModelID, buf[n:])
	n += varint.Int.Marshal(record.InputTokens, buf[n:])
	n += varint.Int.Marshal(record.OutputTokens, buf[n:])
	varint.Int64.Marshal(generatedAt, buf[n:])
	return buf
}

// UnmarshalRecord deserializes a Record from MUS bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	var record Record

	answerText, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	record.AnswerText = answerText

	confidence, m, err := raw.Float64.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	record.ConfidenceScore = confidence
	n += m

	modelID, m, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	record.ModelID = modelID
	n += m

	inputTokens, m, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	record.InputTokens = inputTokens
	n += m

	outputTokens, m, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	record.OutputTokens = outputTokens
	n += m

	generatedAt, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	record.GeneratedAt = msToTime(generatedAt)

	return &record, nil
}
