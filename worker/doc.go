// Package worker consumes query jobs from the message broker and runs them
// on a bounded dispatcher pool. The pool size doubles as the prefetch
// window, so backpressure is simply the consumer stalling on a full pool.
package worker
