// Package openai implements the ai contracts against any OpenAI-compatible
// embedding and completion API, with bounded retries, a hard per-call
// timeout, dimensionality enforcement and an answer safety screen.
package openai
