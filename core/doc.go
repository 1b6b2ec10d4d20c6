// Package core defines the domain model for the query-processing pipeline:
// queries, chunks, retrieval results, answers, escalations and audit events,
// along with the validation rules and error taxonomy shared by every other
// package.
package core
