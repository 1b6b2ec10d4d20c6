// Package vectordb wraps the external vector-similarity service behind the
// narrow Store interface the retriever depends on. The production
// implementation talks to Qdrant over HTTP.
package vectordb
