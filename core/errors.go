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


package core

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// ErrInputRejected indicates the caller's input failed validation.
	// Terminal for the query; never retried.
	ErrInputRejected = errors.New("input rejected")

	// ErrNoEvidence indicates retrieval returned nothing above the score
	// threshold. Not a failure, but it forces low confidence downstream.
	ErrNoEvidence = errors.New("no evidence found")

	// ErrGenerationFailed indicates the generator exhausted its retry budget.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidQuery indicates a Query failed domain validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidRanks indicates retrieval result ranks are not a contiguous
	// 1..N sequence.
	ErrInvalidRanks = errors.New("retrieval ranks must be contiguous from 1")

	// ErrTerminalStatus indicates an attempt to mutate a query that already
	// reached a terminal status.
	ErrTerminalStatus = errors.New("query already in terminal status")
)

// ErrorKind classifies a failed external-service call.
type ErrorKind int

const (
	// KindTransient marks errors worth retrying: timeouts, rate limits,
	// temporary unavailability.
	KindTransient ErrorKind = iota + 1
	// KindFatal marks errors that retrying cannot fix: auth failures,
	// malformed input, configuration mismatch.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ServiceError wraps an external-service failure with its retry
// classification and the service that produced it.
type ServiceError struct {
	Service string
	Kind    ErrorKind
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Service, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable service error.
func Transient(service string, err error) error {
	return &ServiceError{Service: service, Kind: KindTransient, Err: err}
}

// Fatal wraps err as a non-retryable service error.
func Fatal(service string, err error) error {
	return &ServiceError{Service: service, Kind: KindFatal, Err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindTransient
}

// IsFatal reports whether err is classified as non-retryable.
func IsFatal(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindFatal
}
