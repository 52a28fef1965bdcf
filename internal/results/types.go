package results

import (
	"icebergtest/internal/resolver"
	"icebergtest/internal/suite"
)

// Status is the recorded outcome of a stack.
type Status string

const (
	// StatusCompatible marks a stack declared compatible but never tested.
	StatusCompatible Status = "compatible"
	StatusSuccess    Status = "success"
	StatusPartial    Status = "partial"
	StatusFailed     Status = "failed"
)

// Statuses lists every status, best first.
var Statuses = []Status{StatusSuccess, StatusPartial, StatusFailed, StatusCompatible}

// UnknownInterface is recorded when a live run cannot be tied to exactly one
// resolved stack.
const UnknownInterface = "unknown"

// CompatibleExplanation is the explanation of placeholder records.
const CompatibleExplanation = "This combination should work, but we haven't tested it yet!"

// dateLayout is the as_of format.
const dateLayout = "2006-01-02"

// Test is one step outcome as persisted.
type Test struct {
	Test   string       `yaml:"test" json:"test"`
	Status suite.Status `yaml:"status" json:"status"`
}

// Outcome is the results block of a record.
type Outcome struct {
	AsOf        string `yaml:"as_of" json:"as_of"`
	Status      Status `yaml:"status" json:"status"`
	Explanation string `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Tests       []Test `yaml:"tests" json:"tests"`
}

// Record is one entry of the store. Its natural key is the embedded Keys.
type Record struct {
	resolver.Keys `yaml:",inline"`
	Results       Outcome `yaml:"results" json:"results"`
}

// Document is the whole results.yml file.
type Document struct {
	Results []Record `yaml:"results" json:"results"`
}

// Find returns the index of the first record with the given natural key, or
// -1.
func (d *Document) Find(keys resolver.Keys) int {
	for i, r := range d.Results {
		if r.Keys == keys {
			return i
		}
	}
	return -1
}

// Filter returns the records whose status is one of statuses. No statuses
// matches everything.
func (d *Document) Filter(statuses ...Status) []Record {
	if len(statuses) == 0 {
		return d.Results
	}
	var out []Record
	for _, r := range d.Results {
		for _, s := range statuses {
			if r.Results.Status == s {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// StatusFromSteps classifies a suite run: success when every step passed,
// partial when some did, failed otherwise.
func StatusFromSteps(steps []suite.StepResult) Status {
	passed := suite.Passed(steps)
	switch {
	case len(steps) > 0 && passed == len(steps):
		return StatusSuccess
	case passed > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// TestsFromSteps converts step results to their persisted form.
func TestsFromSteps(steps []suite.StepResult) []Test {
	tests := make([]Test, len(steps))
	for i, s := range steps {
		tests[i] = Test{Test: s.Test, Status: s.Status}
	}
	return tests
}

// ResolveKeys ties a live run to the registry: when exactly one resolved
// stack uses the three components its interfaces are recorded, otherwise
// both interfaces are UnknownInterface.
func ResolveKeys(stacks []resolver.Stack, queryEngine, catalog, storage string) resolver.Keys {
	if matches := resolver.Select(stacks, queryEngine, catalog, storage); len(matches) == 1 {
		return matches[0].Keys()
	}
	return resolver.Keys{
		QueryEngine:      queryEngine,
		Catalog:          catalog,
		Storage:          storage,
		CatalogInterface: UnknownInterface,
		StorageInterface: UnknownInterface,
	}
}
