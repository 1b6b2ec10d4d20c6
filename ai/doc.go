// Package ai defines the contracts for the external embedding and
// completion services. The openai subpackage implements them against any
// OpenAI-compatible API; the mock subpackage provides deterministic test
// doubles.
package ai
