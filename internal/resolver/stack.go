package resolver

import (
	"fmt"

	"icebergtest/internal/registry"
)

// Stack is one validated binding of a query engine to a storage, optionally
// through a catalog. Catalog and CatalogInterface are both nil for
// catalog-free stacks. Stacks are values and never modified once built.
type Stack struct {
	QueryEngine      registry.QueryEngine
	Catalog          *registry.Catalog
	Storage          registry.Storage
	CatalogInterface *registry.CatalogInterface
	StorageInterface registry.StorageInterface
}

// Keys is the flat, comparable identity of a stack. Catalog fields are empty
// for catalog-free stacks.
type Keys struct {
	QueryEngine      string `json:"query_engine" yaml:"query_engine"`
	Catalog          string `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Storage          string `json:"storage" yaml:"storage"`
	CatalogInterface string `json:"catalog_interface,omitempty" yaml:"catalog_interface,omitempty"`
	StorageInterface string `json:"storage_interface" yaml:"storage_interface"`
}

// HasCatalog reports whether the stack goes through a catalog.
func (s Stack) HasCatalog() bool {
	return s.Catalog != nil
}

// Keys returns the stack's identity.
func (s Stack) Keys() Keys {
	k := Keys{
		QueryEngine:      s.QueryEngine.Key,
		Storage:          s.Storage.Key,
		StorageInterface: s.StorageInterface.Key,
	}
	if s.Catalog != nil {
		k.Catalog = s.Catalog.Key
	}
	if s.CatalogInterface != nil {
		k.CatalogInterface = s.CatalogInterface.Key
	}
	return k
}

func (s Stack) String() string {
	return s.Keys().String()
}

func (k Keys) String() string {
	if k.Catalog == "" {
		return fmt.Sprintf("%s -> %s (%s)", k.QueryEngine, k.Storage, k.StorageInterface)
	}
	return fmt.Sprintf("%s -> %s (%s) -> %s (%s)", k.QueryEngine, k.Catalog, k.CatalogInterface, k.Storage, k.StorageInterface)
}

// Select returns the stacks built from the given component keys. An empty
// catalog matches only catalog-free stacks.
func Select(stacks []Stack, queryEngine, catalog, storage string) []Stack {
	var out []Stack
	for _, s := range stacks {
		k := s.Keys()
		if k.QueryEngine == queryEngine && k.Catalog == catalog && k.Storage == storage {
			out = append(out, s)
		}
	}
	return out
}
