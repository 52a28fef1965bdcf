package suite

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"icebergtest/internal/component"
	"icebergtest/internal/tableformat"
	"icebergtest/pkg/logging"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

const suiteSubsystem = "Suite"

// Status is the outcome of one step.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StepResult is the outcome of one step. Test and Status are what the
// results store records; Error and Duration only go into reports.
type StepResult struct {
	Test     string        `json:"test" yaml:"test"`
	Status   Status        `json:"status" yaml:"status"`
	Error    string        `json:"error,omitempty" yaml:"-"`
	Duration time.Duration `json:"duration" yaml:"-"`
}

// Step is one named suite step.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// ErrNoCatalog is returned by the steps that need the table-format client
// on a catalog-free stack.
var ErrNoCatalog = errors.New("stack has no catalog")

// Suite is the SQL compatibility suite bound to one stack.
type Suite struct {
	env     *component.Env
	storage component.Storage
	catalog component.Catalog
	engine  component.QueryEngine
	mem     memory.Allocator
	steps   []Step
	onStep  func(StepResult)
}

// Option customises a Suite.
type Option func(*Suite)

// WithStepCallback is called after every step.
func WithStepCallback(fn func(StepResult)) Option {
	return func(s *Suite) { s.onStep = fn }
}

// WithAllocator sets the arrow allocator used for fixture data.
func WithAllocator(mem memory.Allocator) Option {
	return func(s *Suite) { s.mem = mem }
}

// New binds the suite to a stack. catalog may be nil.
func New(env *component.Env, storage component.Storage, catalog component.Catalog, engine component.QueryEngine, opts ...Option) *Suite {
	s := &Suite{
		env:     env,
		storage: storage,
		catalog: catalog,
		engine:  engine,
		mem:     memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.steps = []Step{
		{"test_create_catalog_table", s.createCatalogTable},
		{"test_verify_data", s.verifyData},
		{"test_modify_data", s.modifyData},
		{"test_verify_modified_data", s.verifyModifiedData},
		{"test_drop_catalog_table", s.dropCatalogTable},
		{"test_advanced_create_table", s.advancedCreateTable},
		{"test_advanced_insert_data", s.advancedInsertData},
		{"test_advanced_verify_data", s.verifyData},
		{"test_advanced_modify_data", s.modifyData},
		{"test_advanced_verify_modified_data", s.verifyModifiedData},
	}
	return s
}

// StepNames lists the steps in execution order.
func (s *Suite) StepNames() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.Name
	}
	return names
}

// Run executes every step in order. success is true only when every step
// passed.
func (s *Suite) Run(ctx context.Context) (bool, []StepResult) {
	logging.Info(suiteSubsystem, "Running SQL test suite...")

	success := true
	results := make([]StepResult, 0, len(s.steps))
	for _, step := range s.steps {
		start := time.Now()
		err := runStep(ctx, step)
		result := StepResult{Test: step.Name, Status: StatusSuccess, Duration: time.Since(start)}
		if err != nil {
			logging.Error(suiteSubsystem, err, "❌ %s", step.Name)
			result.Status = StatusFailed
			result.Error = err.Error()
			success = false
		} else {
			logging.Info(suiteSubsystem, "✅ %s", step.Name)
		}
		results = append(results, result)
		if s.onStep != nil {
			s.onStep(result)
		}
	}

	if success {
		logging.Info(suiteSubsystem, "All tests passed successfully!")
	}
	return success, results
}

// runStep runs one step and converts a panic into an error.
func runStep(ctx context.Context, step Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logging.Debug(suiteSubsystem, "%s panicked:\n%s", step.Name, debug.Stack())
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return step.Run(ctx)
}

func (s *Suite) tables(ctx context.Context) (tableformat.Catalog, error) {
	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	return s.env.Catalog(ctx, s.storage.CatalogProperties(), s.catalog.CatalogProperties())
}

func (s *Suite) createCatalogTable(ctx context.Context) error {
	cat, err := s.tables(ctx)
	if err != nil {
		return err
	}

	data := ArrowTable(s.mem, SeedOrders)
	defer data.Release()

	spec := tableformat.TableSpec{
		Namespace: s.catalog.CatalogName(),
		Name:      TestTableName,
		Location:  fmt.Sprintf("%s/%s/%s", s.storage.BucketURL(), s.catalog.CatalogName(), TestTableName),
		Schema:    Schema(),
		Data:      data,
	}
	if err := cat.CreateTable(ctx, spec); err != nil {
		return err
	}
	return s.engine.LinkTable(ctx, TestTable)
}

func (s *Suite) dropCatalogTable(ctx context.Context) error {
	if err := s.engine.UnlinkTable(ctx, TestTable); err != nil {
		return err
	}
	cat, err := s.tables(ctx)
	if err != nil {
		return err
	}
	return cat.DropTable(ctx, s.catalog.CatalogName(), TestTableName)
}

func (s *Suite) advancedCreateTable(ctx context.Context) error {
	return s.engine.CreateTable(ctx, TestTable)
}

func (s *Suite) advancedInsertData(ctx context.Context) error {
	_, err := s.engine.ExecuteQuery(ctx, InsertSQL(TestTable, SeedOrders))
	return err
}

func (s *Suite) modifyData(ctx context.Context) error {
	_, err := s.engine.ExecuteQuery(ctx, UpdateSQL(TestTable, ModifiedOrderID))
	return err
}

func (s *Suite) verify(ctx context.Context, expected [][]any) error {
	rows, err := s.engine.ExecuteQuery(ctx, VerifySQL(TestTable))
	if err != nil {
		return err
	}
	return CompareRows(expected, rows)
}

func (s *Suite) verifyData(ctx context.Context) error {
	return s.verify(ctx, ExpectedInitial)
}

func (s *Suite) verifyModifiedData(ctx context.Context) error {
	return s.verify(ctx, ExpectedModified)
}

// Passed counts successful steps.
func Passed(results []StepResult) int {
	n := 0
	for _, r := range results {
		if r.Status == StatusSuccess {
			n++
		}
	}
	return n
}
