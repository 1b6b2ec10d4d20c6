// Package mock provides deterministic test doubles for the ai contracts.
package mock
