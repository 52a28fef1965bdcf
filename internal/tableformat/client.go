package tableformat

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"icebergtest/pkg/logging"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/iceberg-go"
	"github.com/apache/iceberg-go/catalog"
	_ "github.com/apache/iceberg-go/catalog/glue"
	_ "github.com/apache/iceberg-go/catalog/rest"
	"github.com/apache/iceberg-go/table"
)

const tableFormatSubsystem = "TableFormat"

// CatalogLoadName is the name iceberg-go catalogs are loaded under.
const CatalogLoadName = "iceberg_test"

// TableSpec describes a table to create.
type TableSpec struct {
	Namespace string
	Name      string
	Location  string
	Schema    *iceberg.Schema
	// Data is appended after creation when non-nil.
	Data arrow.Table
}

// Identifier returns the dotted table identifier.
func (s TableSpec) Identifier() string {
	return s.Namespace + "." + s.Name
}

// Catalog is the subset of a table-format catalog the harness uses.
type Catalog interface {
	CreateNamespace(ctx context.Context, namespace string) error
	DropNamespace(ctx context.Context, namespace string) error
	CreateTable(ctx context.Context, spec TableSpec) error
	DropTable(ctx context.Context, namespace, name string) error
}

// Opener opens a Catalog from merged properties.
type Opener func(ctx context.Context, props map[string]string) (Catalog, error)

// MergeProperties merges property layers left to right; later layers win.
func MergeProperties(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		maps.Copy(merged, layer)
	}
	return merged
}

type icebergCatalog struct {
	cat catalog.Catalog
}

// Open loads an iceberg-go catalog. The catalog type defaults to rest.
func Open(ctx context.Context, props map[string]string) (Catalog, error) {
	p := make(iceberg.Properties, len(props)+1)
	maps.Copy(p, props)
	if _, ok := p["type"]; !ok {
		p["type"] = "rest"
	}

	logging.Debug(tableFormatSubsystem, "Loading %s catalog at %s", p["type"], p["uri"])
	cat, err := catalog.Load(ctx, CatalogLoadName, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s catalog: %w", p["type"], err)
	}
	return &icebergCatalog{cat: cat}, nil
}

func (c *icebergCatalog) CreateNamespace(ctx context.Context, namespace string) error {
	err := c.cat.CreateNamespace(ctx, table.Identifier{namespace}, nil)
	if errors.Is(err, catalog.ErrNamespaceAlreadyExists) {
		logging.Debug(tableFormatSubsystem, "Namespace %s already exists", namespace)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", namespace, err)
	}
	logging.Info(tableFormatSubsystem, "Created namespace %s", namespace)
	return nil
}

func (c *icebergCatalog) DropNamespace(ctx context.Context, namespace string) error {
	if err := c.cat.DropNamespace(ctx, table.Identifier{namespace}); err != nil {
		return fmt.Errorf("failed to drop namespace %s: %w", namespace, err)
	}
	logging.Info(tableFormatSubsystem, "Dropped namespace %s", namespace)
	return nil
}

func (c *icebergCatalog) CreateTable(ctx context.Context, spec TableSpec) error {
	var opts []catalog.CreateTableOpt
	if spec.Location != "" {
		opts = append(opts, catalog.WithLocation(spec.Location))
	}

	tbl, err := c.cat.CreateTable(ctx, table.Identifier{spec.Namespace, spec.Name}, spec.Schema, opts...)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", spec.Identifier(), err)
	}
	logging.Info(tableFormatSubsystem, "Created table %s at %s", spec.Identifier(), tbl.Location())

	if spec.Data == nil {
		return nil
	}
	if _, err := tbl.AppendTable(ctx, spec.Data, spec.Data.NumRows(), nil); err != nil {
		return fmt.Errorf("failed to write %d rows to %s: %w", spec.Data.NumRows(), spec.Identifier(), err)
	}
	logging.Info(tableFormatSubsystem, "Wrote %d rows to %s", spec.Data.NumRows(), spec.Identifier())
	return nil
}

func (c *icebergCatalog) DropTable(ctx context.Context, namespace, name string) error {
	if err := c.cat.DropTable(ctx, table.Identifier{namespace, name}); err != nil {
		return fmt.Errorf("failed to drop table %s.%s: %w", namespace, name, err)
	}
	logging.Info(tableFormatSubsystem, "Dropped table %s.%s", namespace, name)
	return nil
}
