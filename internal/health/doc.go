// Package health implements the readiness gate every component passes
// through before its Setup returns: a bounded, fixed-interval poll.
package health
