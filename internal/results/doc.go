// Package results is the persisted compatibility results store,
// database/results.yml. Every read-modify-write holds an OS file lock and
// replaces the file atomically, so concurrent matrix runs never lose a
// record.
package results
