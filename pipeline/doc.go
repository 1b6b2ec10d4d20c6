// Package pipeline drives a query through validation, embedding, retrieval,
// generation and scoring to exactly one terminal status: completed, escalated
// or failed. Transitions are strictly forward and persisted before each
// stage runs.
package pipeline
