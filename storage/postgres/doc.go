// Package postgres provides the Postgres-backed implementation of the
// storage repositories, including pgvector-typed chunk embeddings.
package postgres
