// Package scoring derives a confidence score for generated answers from
// their retrieval evidence and decides whether a query escalates to human
// support.
package scoring
