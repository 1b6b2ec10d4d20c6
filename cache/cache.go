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
	"context"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Record is the cached portion of an answer. Only completed answers are
// cached; escalated and failed queries never land here.
type Record struct {
	AnswerText      string
	ConfidenceScore float64
	ModelID         string
	InputTokens     int
	OutputTokens    int
	GeneratedAt     time.Time
}

// AnswerCache stores answers keyed by collection and sanitized question
// text. A miss is (nil, nil); errors are reserved for backend failures.
type AnswerCache interface {
	Get(ctx context.Context, collection, question string) (*Record, error)
	Set(ctx context.Context, collection, question string, record *Record) error
	Close() error
}

// Key derives the cache key from collection and sanitized question text
// using BLAKE2b. The NUL separator keeps ("ab","c") and ("a","bc") apart.
func Key(collection, question string) []byte {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(collection))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return h.Sum(nil)
}

// KeyString returns the hex form of Key for backends with string keys.
func KeyString(collection, question string) string {
	return hex.EncodeToString(Key(collection, question))
}
