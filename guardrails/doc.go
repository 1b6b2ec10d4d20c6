// Package guardrails validates and sanitizes user input before it reaches
// any external service: length limits, injection blocklists and typed PII
// redaction, with an audit record for every redaction or rejection.
package guardrails
