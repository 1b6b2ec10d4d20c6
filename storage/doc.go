// Package storage defines the repository interfaces the pipeline needs from
// the relational store. The postgres subpackage implements them with pgx;
// the mock subpackage provides in-memory doubles for tests.
package storage
