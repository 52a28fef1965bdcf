package matrix

import (
	"slices"

	"icebergtest/internal/component"
	"icebergtest/internal/resolver"
	"icebergtest/internal/results"
	"icebergtest/internal/stack"
)

// Filter narrows the stacks a matrix run covers. Empty fields match
// everything.
type Filter struct {
	QueryEngines []string
	Catalogs     []string
	Storages     []string
	// SkipCatalogFree drops stacks without a catalog.
	SkipCatalogFree bool
}

func (f Filter) match(k resolver.Keys) bool {
	if f.SkipCatalogFree && k.Catalog == "" {
		return false
	}
	return matches(f.QueryEngines, k.QueryEngine) &&
		matches(f.Catalogs, k.Catalog) &&
		matches(f.Storages, k.Storage)
}

func matches(allowed []string, key string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, key)
}

// Job is one stack to assemble and test.
type Job struct {
	Selection stack.Selection
	// Keys is what a recorded result is filed under.
	Keys resolver.Keys
	// Locks are the exclusive resources the stack claims.
	Locks []string
}

// Skip is a resolved stack that cannot be run.
type Skip struct {
	Keys   resolver.Keys
	Reason string
}

// Plan turns resolved stacks into jobs. Stacks whose components have no
// implementation are skipped; stacks that differ only in their interfaces
// become one job, since they assemble the same components.
func Plan(reg *component.Registry, stacks []resolver.Stack, filter Filter) ([]Job, []Skip) {
	var (
		jobs    []Job
		skipped []Skip
		seen    = map[stack.Selection]bool{}
	)

	for _, s := range stacks {
		k := s.Keys()
		if !filter.match(k) {
			continue
		}
		if err := reg.Check(k.Storage, k.Catalog, k.QueryEngine); err != nil {
			skipped = append(skipped, Skip{Keys: k, Reason: err.Error()})
			continue
		}

		sel := stack.Selection{Storage: k.Storage, Catalog: k.Catalog, QueryEngine: k.QueryEngine}
		if seen[sel] {
			continue
		}
		seen[sel] = true

		jobs = append(jobs, Job{
			Selection: sel,
			Keys:      results.ResolveKeys(stacks, k.QueryEngine, k.Catalog, k.Storage),
			Locks:     reg.Locks(k.Storage, k.Catalog, k.QueryEngine),
		})
	}
	return jobs, skipped
}
