package cli

import (
	"fmt"
	"strings"
	"time"

	"icebergtest/internal/component"
	"icebergtest/internal/matrix"
	"icebergtest/internal/resolver"
	"icebergtest/internal/results"
	"icebergtest/internal/suite"
	pkgstrings "icebergtest/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/text"
)

const none = "-"

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}

// ComponentInfo is one registered implementation.
type ComponentInfo struct {
	Key         string `json:"key" yaml:"key"`
	Description string `json:"description" yaml:"description"`
}

// ComponentsView lists the registered implementations per role.
func ComponentsView(reg *component.Registry) (map[component.Role][]ComponentInfo, Table) {
	data := map[component.Role][]ComponentInfo{}
	tbl := Table{Header: []string{"role", "key", "description"}, Empty: "No components registered"}
	for _, role := range component.Roles {
		infos := []ComponentInfo{}
		for _, d := range reg.GetByRole(role) {
			infos = append(infos, ComponentInfo{Key: d.Key, Description: d.Description})
			tbl.Rows = append(tbl.Rows, []string{string(role), d.Key, d.Description})
		}
		data[role] = infos
	}
	return data, tbl
}

// StacksView lists resolved stacks.
func StacksView(stacks []resolver.Stack) ([]resolver.Keys, Table) {
	data := make([]resolver.Keys, len(stacks))
	tbl := Table{
		Header: []string{"query engine", "catalog", "catalog interface", "storage", "storage interface"},
		Footer: fmt.Sprintf("Total: %d stacks", len(stacks)),
		Empty:  "No compatible stacks",
	}
	for i, s := range stacks {
		k := s.Keys()
		data[i] = k
		tbl.Rows = append(tbl.Rows, []string{k.QueryEngine, orNone(k.Catalog), orNone(k.CatalogInterface), k.Storage, k.StorageInterface})
	}
	return data, tbl
}

// StatusText colours a recorded status.
func StatusText(s results.Status) string {
	switch s {
	case results.StatusSuccess:
		return text.FgGreen.Sprint(s)
	case results.StatusPartial:
		return text.FgYellow.Sprint(s)
	case results.StatusFailed:
		return text.FgRed.Sprint(s)
	default:
		return text.FgBlue.Sprint(s)
	}
}

// ResultsView lists records of the results store.
func ResultsView(records []results.Record) ([]results.Record, Table) {
	tbl := Table{
		Header: []string{"query engine", "catalog", "storage", "interfaces", "status", "as of", "passed"},
		Footer: fmt.Sprintf("Total: %d results", len(records)),
		Empty:  "No results recorded",
	}
	for _, r := range records {
		passed := none
		if n := len(r.Results.Tests); n > 0 {
			ok := 0
			for _, t := range r.Results.Tests {
				if t.Status == suite.StatusSuccess {
					ok++
				}
			}
			passed = fmt.Sprintf("%d/%d", ok, n)
		}
		ifaces := r.StorageInterface
		if r.CatalogInterface != "" {
			ifaces = r.CatalogInterface + "/" + r.StorageInterface
		}
		tbl.Rows = append(tbl.Rows, []string{
			r.QueryEngine, orNone(r.Catalog), r.Storage, ifaces,
			StatusText(r.Results.Status), r.Results.AsOf, passed,
		})
	}
	if records == nil {
		records = []results.Record{}
	}
	return records, tbl
}

// StepsView lists the steps of one suite run.
func StepsView(steps []suite.StepResult) ([]suite.StepResult, Table) {
	tbl := Table{Header: []string{"test", "status", "duration", "error"}}
	for _, s := range steps {
		status := text.FgGreen.Sprint("✅ " + string(s.Status))
		if s.Status != suite.StatusSuccess {
			status = text.FgRed.Sprint("❌ " + string(s.Status))
		}
		tbl.Rows = append(tbl.Rows, []string{s.Test, status, s.Duration.Round(time.Millisecond).String(), pkgstrings.Truncate(s.Error, pkgstrings.DefaultMaxLen)})
	}
	tbl.Footer = fmt.Sprintf("Passed: %d/%d", suite.Passed(steps), len(steps))
	return steps, tbl
}

// PlannedJob is the serialised form of one planned matrix job.
type PlannedJob struct {
	resolver.Keys `yaml:",inline"`
	Locks         []string `json:"locks,omitempty" yaml:"locks,omitempty"`
	Skipped       string   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// PlanView lists what a matrix run would do. Skipped stacks come last.
func PlanView(jobs []matrix.Job, skipped []matrix.Skip) ([]PlannedJob, Table) {
	data := make([]PlannedJob, 0, len(jobs)+len(skipped))
	tbl := Table{
		Header: []string{"storage", "catalog", "query engine", "locks", "skipped"},
		Footer: fmt.Sprintf("Jobs: %d  Skipped: %d", len(jobs), len(skipped)),
		Empty:  "No stacks match",
	}
	for _, j := range jobs {
		data = append(data, PlannedJob{Keys: j.Keys, Locks: j.Locks})
		tbl.Rows = append(tbl.Rows, []string{
			j.Selection.Storage, orNone(j.Selection.Catalog), j.Selection.QueryEngine,
			orNone(strings.Join(j.Locks, ",")), none,
		})
	}
	for _, s := range skipped {
		data = append(data, PlannedJob{Keys: s.Keys, Skipped: s.Reason})
		tbl.Rows = append(tbl.Rows, []string{
			s.Keys.Storage, orNone(s.Keys.Catalog), s.Keys.QueryEngine,
			none, text.FgYellow.Sprint(pkgstrings.Truncate(s.Reason, pkgstrings.DefaultMaxLen)),
		})
	}
	return data, tbl
}

// MatrixResult is the serialised form of one matrix job.
type MatrixResult struct {
	resolver.Keys `yaml:",inline"`
	Status        results.Status     `json:"status" yaml:"status"`
	Error         string             `json:"error,omitempty" yaml:"error,omitempty"`
	Duration      string             `json:"duration" yaml:"duration"`
	Steps         []suite.StepResult `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// MatrixView summarises a matrix run.
func MatrixView(summary *matrix.Summary) ([]MatrixResult, Table) {
	data := make([]MatrixResult, 0, len(summary.Results))
	tbl := Table{
		Header: []string{"storage", "catalog", "query engine", "status", "passed", "duration", "error"},
		Footer: fmt.Sprintf("Succeeded: %d  Partial: %d  Failed: %d  Errored: %d  (%s)",
			summary.Succeeded, summary.Partial, summary.Failed, summary.Errored, summary.Duration.Round(time.Second)),
		Empty: "No stacks were run",
	}
	for _, r := range summary.Results {
		mr := MatrixResult{
			Keys:     r.Job.Keys,
			Status:   r.Status,
			Duration: r.Duration.Round(time.Millisecond).String(),
			Steps:    r.Steps,
		}
		if r.Err != nil {
			mr.Error = r.Err.Error()
		}
		data = append(data, mr)

		passed := none
		if len(r.Steps) > 0 {
			passed = fmt.Sprintf("%d/%d", suite.Passed(r.Steps), len(r.Steps))
		}
		sel := r.Job.Selection
		tbl.Rows = append(tbl.Rows, []string{
			sel.Storage, orNone(sel.Catalog), sel.QueryEngine,
			StatusText(r.Status), passed, mr.Duration, pkgstrings.Truncate(mr.Error, pkgstrings.DefaultMaxLen),
		})
	}
	return data, tbl
}

// RowsView renders a query result. Columns are numbered since engines only
// return values.
func RowsView(rows [][]any) ([][]any, Table) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	tbl := Table{Footer: fmt.Sprintf("(%d rows)", len(rows)), Empty: "OK"}
	for i := range width {
		tbl.Header = append(tbl.Header, fmt.Sprintf("_col%d", i))
	}
	for _, r := range rows {
		cells := make([]string, width)
		for i, v := range r {
			switch val := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(val)
			default:
				cells[i] = fmt.Sprint(val)
			}
		}
		tbl.Rows = append(tbl.Rows, cells)
	}
	return rows, tbl
}
