// Package mock provides an in-memory test double for the storage
// repositories. Behavior can be overridden per method via function fields;
// unset methods fall back to map-backed defaults so most tests need no setup
// beyond NewMockStore.
package mock
