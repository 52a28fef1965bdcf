package component

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Descriptor describes one registered component.
type Descriptor struct {
	Key         string
	Role        Role
	Description string
	// Locks name host ports or fixed cloud resources the component claims.
	// Stacks sharing a lock are never run concurrently.
	Locks []string
}

// StorageFactory builds a storage.
type StorageFactory func(env *Env) (Storage, error)

// CatalogFactory builds a catalog bound to its storage.
type CatalogFactory func(env *Env, storage Storage) (Catalog, error)

// QueryEngineFactory builds a query engine. catalog is nil for catalog-free
// stacks.
type QueryEngineFactory func(env *Env, storage Storage, catalog Catalog) (QueryEngine, error)

// UnknownComponentError reports a key with no registered factory.
type UnknownComponentError struct {
	Role  Role
	Key   string
	Known []string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown %s %q (available: %s)", e.Role, e.Key, strings.Join(e.Known, ", "))
}

// IsUnknownComponent reports whether err is an UnknownComponentError.
func IsUnknownComponent(err error) bool {
	var target *UnknownComponentError
	return errors.As(err, &target)
}

type entry struct {
	desc        Descriptor
	storage     StorageFactory
	catalog     CatalogFactory
	queryEngine QueryEngineFactory
}

// Registry is the static table of component factories per role.
type Registry struct {
	mu      sync.RWMutex
	entries map[Role]map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Role]map[string]entry)}
}

// RegisterStorage adds a storage factory.
func (r *Registry) RegisterStorage(desc Descriptor, factory StorageFactory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil storage factory %q", desc.Key)
	}
	desc.Role = RoleStorage
	return r.register(entry{desc: desc, storage: factory})
}

// RegisterCatalog adds a catalog factory.
func (r *Registry) RegisterCatalog(desc Descriptor, factory CatalogFactory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil catalog factory %q", desc.Key)
	}
	desc.Role = RoleCatalog
	return r.register(entry{desc: desc, catalog: factory})
}

// RegisterQueryEngine adds a query engine factory.
func (r *Registry) RegisterQueryEngine(desc Descriptor, factory QueryEngineFactory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil query engine factory %q", desc.Key)
	}
	desc.Role = RoleQueryEngine
	return r.register(entry{desc: desc, queryEngine: factory})
}

func (r *Registry) register(e entry) error {
	if e.desc.Key == "" {
		return fmt.Errorf("%s has empty key", e.desc.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byKey, ok := r.entries[e.desc.Role]
	if !ok {
		byKey = make(map[string]entry)
		r.entries[e.desc.Role] = byKey
	}
	if _, exists := byKey[e.desc.Key]; exists {
		return fmt.Errorf("%s %s already registered", e.desc.Role, e.desc.Key)
	}
	byKey[e.desc.Key] = e
	return nil
}

// Get returns the descriptor for a key.
func (r *Registry) Get(role Role, key string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[role][key]
	return e.desc, ok
}

// Has reports whether a key is registered for the role.
func (r *Registry) Has(role Role, key string) bool {
	_, ok := r.Get(role, key)
	return ok
}

// GetByRole returns the descriptors of a role sorted by key.
func (r *Registry) GetByRole(role Role) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.entries[role]))
	for _, e := range r.entries[role] {
		descs = append(descs, e.desc)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Key < descs[j].Key })
	return descs
}

// Keys returns the sorted keys of a role.
func (r *Registry) Keys(role Role) []string {
	descs := r.GetByRole(role)
	keys := make([]string, len(descs))
	for i, d := range descs {
		keys[i] = d.Key
	}
	return keys
}

// Check verifies that every non-empty key is registered for its role.
func (r *Registry) Check(storage, catalog, queryEngine string) error {
	for _, c := range []struct {
		role Role
		key  string
	}{
		{RoleStorage, storage},
		{RoleCatalog, catalog},
		{RoleQueryEngine, queryEngine},
	} {
		if c.key == "" {
			continue
		}
		if !r.Has(c.role, c.key) {
			return &UnknownComponentError{Role: c.role, Key: c.key, Known: r.Keys(c.role)}
		}
	}
	return nil
}

// Locks returns the sorted, de-duplicated locks claimed by a stack.
func (r *Registry) Locks(storage, catalog, queryEngine string) []string {
	var locks []string
	for role, key := range map[Role]string{RoleStorage: storage, RoleCatalog: catalog, RoleQueryEngine: queryEngine} {
		if desc, ok := r.Get(role, key); ok {
			locks = append(locks, desc.Locks...)
		}
	}
	sort.Strings(locks)
	return slices.Compact(locks)
}

func (r *Registry) lookup(role Role, key string) (entry, error) {
	r.mu.RLock()
	e, ok := r.entries[role][key]
	r.mu.RUnlock()
	if !ok {
		return entry{}, &UnknownComponentError{Role: role, Key: key, Known: r.Keys(role)}
	}
	return e, nil
}

// NewStorage builds the storage registered under key.
func (r *Registry) NewStorage(key string, env *Env) (Storage, error) {
	e, err := r.lookup(RoleStorage, key)
	if err != nil {
		return nil, err
	}
	return e.storage(env)
}

// NewCatalog builds the catalog registered under key.
func (r *Registry) NewCatalog(key string, env *Env, storage Storage) (Catalog, error) {
	e, err := r.lookup(RoleCatalog, key)
	if err != nil {
		return nil, err
	}
	return e.catalog(env, storage)
}

// NewQueryEngine builds the query engine registered under key.
func (r *Registry) NewQueryEngine(key string, env *Env, storage Storage, catalog Catalog) (QueryEngine, error) {
	e, err := r.lookup(RoleQueryEngine, key)
	if err != nil {
		return nil, err
	}
	return e.queryEngine(env, storage, catalog)
}
