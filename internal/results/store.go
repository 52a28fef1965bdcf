package results

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"icebergtest/internal/resolver"
	"icebergtest/internal/suite"
	"icebergtest/pkg/logging"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const (
	storeSubsystem = "Results"

	// FileName is the store's name inside the database directory.
	FileName = "results.yml"

	lockRetryDelay = 50 * time.Millisecond
)

// Store reads and writes one results file.
type Store struct {
	path string
	lock *flock.Flock
	// mu serialises goroutines sharing this Store; the file lock serialises
	// processes and separate Stores.
	mu  sync.Mutex
	now func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used for as_of dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store for the results file in databaseDir.
func NewStore(databaseDir string, opts ...Option) *Store {
	path := filepath.Join(databaseDir, FileName)
	s := &Store{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path is the results file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the store without locking. A missing file is an empty store.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return &doc, nil
}

// Lookup returns the first record with the given natural key.
func (s *Store) Lookup(keys resolver.Keys) (Record, bool, error) {
	doc, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	if i := doc.Find(keys); i >= 0 {
		return doc.Results[i], true, nil
	}
	return Record{}, false, nil
}

// Update runs fn on the current document under the file lock and writes the
// result back atomically. Nothing is written when fn fails or reports no
// change.
func (s *Store) Update(ctx context.Context, fn func(doc *Document) (changed bool, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", s.path)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			logging.Warn(storeSubsystem, "Failed to unlock %s: %v", s.path, err)
		}
	}()

	doc, err := s.Load()
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	return s.write(doc)
}

func (s *Store) write(doc *Document) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) today() string {
	return s.now().Format(dateLayout)
}

// RecordRun inserts the outcome of a live run at the front of the store.
func (s *Store) RecordRun(ctx context.Context, keys resolver.Keys, steps []suite.StepResult) (Record, error) {
	record := Record{
		Keys: keys,
		Results: Outcome{
			AsOf:   s.today(),
			Status: StatusFromSteps(steps),
			Tests:  TestsFromSteps(steps),
		},
	}

	err := s.Update(ctx, func(doc *Document) (bool, error) {
		doc.Results = append([]Record{record}, doc.Results...)
		return true, nil
	})
	if err != nil {
		return Record{}, err
	}
	logging.Info(storeSubsystem, "Recorded %s result for %s", record.Results.Status, keys)
	return record, nil
}

// AddCompatible appends a compatible placeholder for every stack that has
// no record yet, keeping existing order. Catalog-free stacks are skipped.
// It returns the keys that were added.
func (s *Store) AddCompatible(ctx context.Context, stacks []resolver.Stack) ([]resolver.Keys, error) {
	var added []resolver.Keys
	err := s.Update(ctx, func(doc *Document) (bool, error) {
		added = nil
		for _, stack := range stacks {
			if !stack.HasCatalog() {
				logging.Debug(storeSubsystem, "Skipping catalog-free stack %s", stack)
				continue
			}
			keys := stack.Keys()
			if doc.Find(keys) >= 0 {
				logging.Debug(storeSubsystem, "Found existing test result for %s, leaving it out", keys)
				continue
			}
			doc.Results = append(doc.Results, Record{
				Keys: keys,
				Results: Outcome{
					AsOf:        s.today(),
					Status:      StatusCompatible,
					Explanation: CompatibleExplanation,
					Tests:       []Test{},
				},
			})
			added = append(added, keys)
		}
		return len(added) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	logging.Info(storeSubsystem, "Marked %d stacks as compatible", len(added))
	return added, nil
}
