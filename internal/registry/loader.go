package registry

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"icebergtest/internal/config"
	"icebergtest/pkg/logging"

	"gopkg.in/yaml.v3"
)

const registrySubsystem = "Registry"

// Collection file names inside the database directory.
const (
	StorageInterfacesFile = "storage_interface.yml"
	StoragesFile          = "storage.yml"
	CatalogInterfacesFile = "catalog_interface.yml"
	CatalogsFile          = "catalog.yml"
	QueryEnginesFile      = "query_engine.yml"
)

// Categories used in configuration errors.
const (
	CategoryStorageInterface = "storage_interface"
	CategoryStorage          = "storage"
	CategoryCatalogInterface = "catalog_interface"
	CategoryCatalog          = "catalog"
	CategoryQueryEngine      = "query_engine"
)

// Load reads the five capability collections from dir. It never fails: a
// missing or malformed file leaves its collection empty and a malformed
// entry is skipped. Every problem is returned in the collection and logged.
func Load(dir string) (*Registry, *config.ConfigurationErrorCollection) {
	reg := New()
	errs := config.NewConfigurationErrorCollection()

	loadCollection(dir, StorageInterfacesFile, CategoryStorageInterface, reg.StorageInterfaces, errs,
		func(key string, si *StorageInterface) { si.Key = key })
	loadCollection(dir, StoragesFile, CategoryStorage, reg.Storages, errs,
		func(key string, s *Storage) { s.Key = key })
	loadCollection(dir, CatalogInterfacesFile, CategoryCatalogInterface, reg.CatalogInterfaces, errs,
		func(key string, ci *CatalogInterface) { ci.Key = key })
	loadCollection(dir, CatalogsFile, CategoryCatalog, reg.Catalogs, errs,
		func(key string, c *Catalog) { c.Key = key })
	loadCollection(dir, QueryEnginesFile, CategoryQueryEngine, reg.QueryEngines, errs,
		func(key string, qe *QueryEngine) { qe.Key = key })

	reg.checkReferences(dir, errs)

	for _, e := range errs.Errors {
		logging.Warn(registrySubsystem, "%s", e.Error())
	}
	logging.Info(registrySubsystem, "Loaded %d storage interfaces, %d storages, %d catalog interfaces, %d catalogs, %d query engines",
		len(reg.StorageInterfaces), len(reg.Storages), len(reg.CatalogInterfaces), len(reg.Catalogs), len(reg.QueryEngines))

	return reg, errs
}

func loadCollection[T any](dir, fileName, category string, store map[string]T, errs *config.ConfigurationErrorCollection, setKey func(string, *T)) {
	path := filepath.Join(dir, fileName)

	data, err := os.ReadFile(path)
	if err != nil {
		msg := fmt.Sprintf("failed to read file: %v", err)
		if errors.Is(err, os.ErrNotExist) {
			msg = "file not found"
		}
		errs.AddError(path, fileName, category, "", config.ErrorTypeIO, msg)
		return
	}

	var entries yaml.Node
	if err := yaml.Unmarshal(data, &entries); err != nil {
		errs.AddError(path, fileName, category, "", config.ErrorTypeParse, fmt.Sprintf("invalid YAML: %v", err))
		return
	}
	if entries.Kind == 0 {
		// empty file
		return
	}
	root := &entries
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return
	}
	if root.Kind != yaml.MappingNode {
		errs.AddError(path, fileName, category, "", config.ErrorTypeParse, "expected a mapping of key to definition")
		return
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if err := config.ValidateEntityKey(key, category); err != nil {
			errs.AddError(path, fileName, category, key, config.ErrorTypeValidation, err.Error())
			continue
		}
		if _, dup := store[key]; dup {
			errs.AddError(path, fileName, category, key, config.ErrorTypeValidation, "duplicate key")
			continue
		}

		entry, err := decodeEntry[T](root.Content[i+1])
		if err != nil {
			errs.AddError(path, fileName, category, key, config.ErrorTypeParse, err.Error())
			continue
		}
		setKey(key, &entry)
		store[key] = entry
	}

	logging.Debug(registrySubsystem, "Loaded %d entries from %s", len(store), path)
}

// decodeEntry decodes one definition, rejecting unknown fields.
func decodeEntry[T any](node *yaml.Node) (T, error) {
	var entry T
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return entry, nil
	}
	if node.Kind != yaml.MappingNode {
		return entry, fmt.Errorf("definition must be a mapping")
	}

	raw, err := yaml.Marshal(node)
	if err != nil {
		return entry, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&entry); err != nil {
		return entry, err
	}
	return entry, nil
}

// checkReferences reports interface keys that no collection declares. The
// entries are kept; the resolver ignores unknown interfaces.
func (r *Registry) checkReferences(dir string, errs *config.ConfigurationErrorCollection) {
	report := func(fileName, category, key, iface, kind string) {
		errs.Add(config.NewConfigurationErrorWithDetails(
			filepath.Join(dir, fileName), fileName, category, key, config.ErrorTypeValidation,
			fmt.Sprintf("references unknown %s %q", kind, iface),
			"the reference is ignored when resolving stacks",
			[]string{fmt.Sprintf("declare %q in the %s collection", iface, kind)},
		))
	}

	for _, key := range SortedKeys(r.Storages) {
		for _, si := range r.Storages[key].ImplementsStorageInterfaces {
			if _, ok := r.StorageInterfaces[si]; !ok {
				report(StoragesFile, CategoryStorage, key, si, CategoryStorageInterface)
			}
		}
	}
	for _, key := range SortedKeys(r.Catalogs) {
		c := r.Catalogs[key]
		for _, si := range c.ConsumesStorageInterfaces {
			if _, ok := r.StorageInterfaces[si]; !ok {
				report(CatalogsFile, CategoryCatalog, key, si, CategoryStorageInterface)
			}
		}
		for _, ci := range SortedKeys(c.ImplementsCatalogInterfaces) {
			if _, ok := r.CatalogInterfaces[ci]; !ok {
				report(CatalogsFile, CategoryCatalog, key, ci, CategoryCatalogInterface)
			}
		}
	}
	for _, key := range SortedKeys(r.QueryEngines) {
		qe := r.QueryEngines[key]
		for _, si := range qe.ConsumesStorageInterfaces {
			if _, ok := r.StorageInterfaces[si]; !ok {
				report(QueryEnginesFile, CategoryQueryEngine, key, si, CategoryStorageInterface)
			}
		}
		for _, ci := range qe.ConsumesCatalogInterfaces {
			if _, ok := r.CatalogInterfaces[ci]; !ok {
				report(QueryEnginesFile, CategoryQueryEngine, key, ci, CategoryCatalogInterface)
			}
		}
	}
}

// SortedKeys returns the keys of a collection in lexical order.
func SortedKeys[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}
