// Package retrieval joins vector-similarity matches with stored chunk text
// to produce the ranked evidence set for answer generation.
package retrieval
