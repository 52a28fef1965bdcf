package registry

// Describable is the metadata every registry entry carries.
type Describable struct {
	Key         string   `yaml:"-" json:"key"`
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Citations   []string `yaml:"citations,omitempty" json:"citations,omitempty"`
}

// DisplayName returns Name, falling back to the key.
func (d Describable) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Key
}

// StorageInterface is a named storage access contract, e.g. the S3 API.
type StorageInterface struct {
	Describable `yaml:",inline"`
}

// CatalogInterface is a named catalog protocol, e.g. the Iceberg REST API.
type CatalogInterface struct {
	Describable `yaml:",inline"`
}

// Storage is an object store.
type Storage struct {
	Describable `yaml:",inline"`
	Cloud       bool `yaml:"cloud,omitempty" json:"cloud,omitempty"`

	ImplementsStorageInterfaces []string `yaml:"implements_storage_interfaces,omitempty" json:"implementsStorageInterfaces,omitempty"`
}

// Catalog is a metadata catalog sitting between query engines and storage.
type Catalog struct {
	Describable `yaml:",inline"`
	Cloud       bool `yaml:"cloud,omitempty" json:"cloud,omitempty"`

	ConsumesStorageInterfaces []string `yaml:"consumes_storage_interfaces,omitempty" json:"consumesStorageInterfaces,omitempty"`
	// ImplementsCatalogInterfaces maps each catalog interface the catalog
	// offers to the storage interfaces it can bridge through it.
	ImplementsCatalogInterfaces map[string][]string `yaml:"implements_catalog_interfaces,omitempty" json:"implementsCatalogInterfaces,omitempty"`
}

// QueryEngine is a SQL engine that reads and writes tables.
type QueryEngine struct {
	Describable `yaml:",inline"`
	Cloud       bool `yaml:"cloud,omitempty" json:"cloud,omitempty"`

	ConsumesStorageInterfaces []string `yaml:"consumes_storage_interfaces,omitempty" json:"consumesStorageInterfaces,omitempty"`
	ConsumesCatalogInterfaces []string `yaml:"consumes_catalog_interfaces,omitempty" json:"consumesCatalogInterfaces,omitempty"`
	// SupportsPathBasedAccess is nil when the definition does not say.
	SupportsPathBasedAccess *bool `yaml:"supports_path_based_access,omitempty" json:"supportsPathBasedAccess,omitempty"`
}

// Registry is the loaded set of capability definitions. It is read-only
// after Load returns and safe to share between goroutines.
type Registry struct {
	StorageInterfaces map[string]StorageInterface
	Storages          map[string]Storage
	CatalogInterfaces map[string]CatalogInterface
	Catalogs          map[string]Catalog
	QueryEngines      map[string]QueryEngine
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		StorageInterfaces: map[string]StorageInterface{},
		Storages:          map[string]Storage{},
		CatalogInterfaces: map[string]CatalogInterface{},
		Catalogs:          map[string]Catalog{},
		QueryEngines:      map[string]QueryEngine{},
	}
}
