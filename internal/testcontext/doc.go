// Package testcontext owns the per-run isolation scope: a uniquely named
// container network that every component of a stack joins.
//
// A TestContext moves from Uninitialized to NetworkCreated on the first
// EnsureNetwork call and to Destroyed on CleanupNetwork. Cleanup is best
// effort and never returns an error.
package testcontext
