package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"icebergtest/internal/registry"
	"icebergtest/internal/resolver"
	"icebergtest/internal/suite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"
)

func fixedClock() time.Time {
	return time.Date(2025, time.February, 6, 12, 0, 0, 0, time.UTC)
}

const seedResults = `results:
  - query_engine: trino
    catalog: polaris
    storage: minio
    catalog_interface: iceberg_rest
    storage_interface: s3
    results:
      as_of: "2025-01-10"
      status: success
      tests:
        - test: test_create_catalog_table
          status: success
`

func newTestStore(t *testing.T, contents string) *Store {
	t.Helper()
	dir := t.TempDir()
	if contents != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(contents), 0644))
	}
	return NewStore(dir, WithClock(fixedClock))
}

func stack(qe, catalog, storage, ci, si string) resolver.Stack {
	s := resolver.Stack{
		QueryEngine:      registry.QueryEngine{Describable: registry.Describable{Key: qe}},
		Storage:          registry.Storage{Describable: registry.Describable{Key: storage}},
		StorageInterface: registry.StorageInterface{Describable: registry.Describable{Key: si}},
	}
	if catalog != "" {
		s.Catalog = &registry.Catalog{Describable: registry.Describable{Key: catalog}}
		s.CatalogInterface = &registry.CatalogInterface{Describable: registry.Describable{Key: ci}}
	}
	return s
}

func steps(statuses ...suite.Status) []suite.StepResult {
	out := make([]suite.StepResult, len(statuses))
	for i, s := range statuses {
		out[i] = suite.StepResult{Test: fmt.Sprintf("step_%d", i+1), Status: s}
	}
	return out
}

func TestStatusFromSteps(t *testing.T) {
	ok, ko := suite.StatusSuccess, suite.StatusFailed
	tests := []struct {
		name  string
		steps []suite.StepResult
		want  Status
	}{
		{"all passed", steps(ok, ok, ok), StatusSuccess},
		{"some passed", steps(ok, ko, ok), StatusPartial},
		{"none passed", steps(ko, ko), StatusFailed},
		{"no steps", nil, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromSteps(tt.steps))
		})
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	doc, err := newTestStore(t, "").Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Results)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := newTestStore(t, "results: [\n").Load()
	assert.ErrorContains(t, err, "failed to parse")
}

func TestLookup(t *testing.T) {
	store := newTestStore(t, seedResults)

	rec, ok, err := store.Lookup(resolver.Keys{
		QueryEngine:      "trino",
		Catalog:          "polaris",
		Storage:          "minio",
		CatalogInterface: "iceberg_rest",
		StorageInterface: "s3",
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-01-10", rec.Results.AsOf)
	assert.Equal(t, StatusSuccess, rec.Results.Status)

	_, ok, err = store.Lookup(resolver.Keys{QueryEngine: "trino", Storage: "minio", StorageInterface: "s3"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordRun_InsertsAtFront(t *testing.T) {
	store := newTestStore(t, seedResults)
	keys := resolver.Keys{QueryEngine: "trino", Catalog: "nessie", Storage: "minio", CatalogInterface: "unknown", StorageInterface: "unknown"}

	rec, err := store.RecordRun(context.Background(), keys, steps(suite.StatusSuccess, suite.StatusFailed))
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, rec.Results.Status)

	doc, err := store.Load()
	require.NoError(t, err)
	require.Len(t, doc.Results, 2)
	assert.Equal(t, keys, doc.Results[0].Keys)
	assert.Equal(t, "2025-02-06", doc.Results[0].Results.AsOf)
	assert.Equal(t, []Test{{"step_1", suite.StatusSuccess}, {"step_2", suite.StatusFailed}}, doc.Results[0].Results.Tests)
	assert.Equal(t, "polaris", doc.Results[1].Catalog)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "2025-02-06")
	assert.NotContains(t, string(data), "error", "step errors are report-only")
}

func TestRecordRun_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	const writers = 8

	g, ctx := errgroup.WithContext(context.Background())
	for i := range writers {
		// separate stores contend on the file lock, not the mutex
		store := NewStore(dir)
		g.Go(func() error {
			_, err := store.RecordRun(ctx, resolver.Keys{QueryEngine: fmt.Sprintf("qe%d", i), Storage: "minio"}, steps(suite.StatusSuccess))
			return err
		})
	}
	require.NoError(t, g.Wait())

	doc, err := NewStore(dir).Load()
	require.NoError(t, err)
	assert.Len(t, doc.Results, writers)
}

func TestAddCompatible(t *testing.T) {
	store := newTestStore(t, seedResults)
	stacks := []resolver.Stack{
		stack("trino", "polaris", "minio", "iceberg_rest", "s3"),
		stack("trino", "nessie", "minio", "iceberg_rest", "s3"),
		stack("duckdb", "", "minio", "", "s3"),
		stack("trino", "aws_glue", "s3", "glue", "s3"),
	}

	added, err := store.AddCompatible(context.Background(), stacks)
	require.NoError(t, err)
	assert.Equal(t, []resolver.Keys{stacks[1].Keys(), stacks[3].Keys()}, added)

	doc, err := store.Load()
	require.NoError(t, err)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "polaris", doc.Results[0].Catalog, "existing records keep their position")
	assert.Equal(t, "nessie", doc.Results[1].Catalog)
	assert.Equal(t, "aws_glue", doc.Results[2].Catalog)
	assert.Equal(t, Outcome{AsOf: "2025-02-06", Status: StatusCompatible, Explanation: CompatibleExplanation, Tests: []Test{}}, doc.Results[2].Results)

	added, err = store.AddCompatible(context.Background(), stacks)
	require.NoError(t, err)
	assert.Empty(t, added)
	doc, err = store.Load()
	require.NoError(t, err)
	assert.Len(t, doc.Results, 3)
}

func TestAddCompatible_NothingToAddLeavesFileAlone(t *testing.T) {
	store := newTestStore(t, "")
	added, err := store.AddCompatible(context.Background(), []resolver.Stack{stack("duckdb", "", "minio", "", "s3")})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.NoFileExists(t, store.Path())
}

func TestAddCompatible_Idempotent(t *testing.T) {
	keys := []string{"a", "b", "c"}
	rapid.Check(t, func(t *rapid.T) {
		gen := rapid.Custom(func(t *rapid.T) resolver.Stack {
			return stack(
				rapid.SampledFrom(keys).Draw(t, "qe"),
				rapid.SampledFrom(keys).Draw(t, "catalog"),
				rapid.SampledFrom(keys).Draw(t, "storage"),
				"rest", "s3",
			)
		})
		first := rapid.SliceOfN(gen, 0, 10).Draw(t, "first")
		second := rapid.SliceOfN(gen, 0, 10).Draw(t, "second")

		dir, err := os.MkdirTemp("", "results")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(dir)
		store := NewStore(dir)

		if _, err := store.AddCompatible(context.Background(), first); err != nil {
			t.Fatal(err)
		}
		before, _ := store.Load()
		if _, err := store.AddCompatible(context.Background(), append(first, second...)); err != nil {
			t.Fatal(err)
		}
		after, _ := store.Load()

		seen := map[resolver.Keys]bool{}
		for _, r := range after.Results {
			if seen[r.Keys] {
				t.Fatalf("duplicate record %s", r.Keys)
			}
			seen[r.Keys] = true
		}
		for i, r := range before.Results {
			if after.Results[i].Keys != r.Keys {
				t.Fatalf("record %d moved", i)
			}
		}
	})
}

func TestFilter(t *testing.T) {
	doc := &Document{Results: []Record{
		{Keys: resolver.Keys{QueryEngine: "a"}, Results: Outcome{Status: StatusSuccess}},
		{Keys: resolver.Keys{QueryEngine: "b"}, Results: Outcome{Status: StatusCompatible}},
		{Keys: resolver.Keys{QueryEngine: "c"}, Results: Outcome{Status: StatusFailed}},
	}}
	assert.Len(t, doc.Filter(), 3)
	got := doc.Filter(StatusSuccess, StatusFailed)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[1].QueryEngine)
}

func TestResolveKeys(t *testing.T) {
	stacks := []resolver.Stack{
		stack("trino", "nessie", "minio", "iceberg_rest", "s3"),
		stack("trino", "polaris", "minio", "iceberg_rest", "s3"),
		stack("trino", "polaris", "minio", "iceberg_rest", "s3a"),
	}

	assert.Equal(t, stacks[0].Keys(), ResolveKeys(stacks, "trino", "nessie", "minio"))
	assert.Equal(t, resolver.Keys{
		QueryEngine:      "trino",
		Catalog:          "polaris",
		Storage:          "minio",
		CatalogInterface: UnknownInterface,
		StorageInterface: UnknownInterface,
	}, ResolveKeys(stacks, "trino", "polaris", "minio"), "ambiguous")
	assert.Equal(t, UnknownInterface, ResolveKeys(stacks, "spark", "nessie", "minio").StorageInterface)
}
