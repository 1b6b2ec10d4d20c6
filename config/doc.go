// Package config centralizes every tunable of the pipeline in one immutable
// struct built from defaults, environment variables and functional options.
package config
