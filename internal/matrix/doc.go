// Package matrix runs the SQL suite over many resolved stacks.
//
// Every stack runs inside its own Test Context, so stacks never share a
// network or a run name. Stacks whose components claim the same exclusive
// resource, such as a fixed host port, are serialised by named locks while
// the rest run in parallel up to the configured limit.
package matrix
