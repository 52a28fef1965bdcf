// Package resolver computes the compatibility matrix: every
// (query engine, catalog, storage, catalog interface, storage interface)
// combination that the capability registry declares legal.
package resolver
