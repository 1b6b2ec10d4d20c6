// Package cache provides the TTL-bounded answer cache. Keys are BLAKE2b
// hashes of collection and sanitized question; values are MUS-encoded
// records. Two backends exist: embedded Badger for single-process
// deployments and Redis for shared ones.
package cache
