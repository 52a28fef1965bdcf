// Package suite runs the fixed SQL compatibility suite against an assembled
// stack.
//
// The suite creates a small customer orders table twice: once through the
// table-format client (and links it into the query engine), once with the
// engine's own DDL and an INSERT. Each time it verifies aggregates, updates
// one row and verifies again. Steps are independent: a failing or panicking
// step is recorded as failed and the next step still runs.
//
// Query results are compared as unordered multisets of rows. Numbers are
// compared by value, so 2, int64(2), "2" and 2.0 are all equal.
package suite
