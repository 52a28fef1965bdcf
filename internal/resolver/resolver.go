package resolver

import (
	"slices"

	"icebergtest/internal/registry"
	"icebergtest/pkg/logging"
)

const resolverSubsystem = "Resolver"

// Resolve enumerates every stack the registry declares compatible.
//
// Query engines form the outer loop, then storages, then catalogs, then the
// storage and catalog interfaces; each collection is walked in key order so
// the result is reproducible. No deduplication is done: the same three
// components bound through two interface pairs are two stacks.
//
// A query engine that consumes no catalog interface is treated as
// catalog-free and only ever yields stacks without a catalog.
func Resolve(reg *registry.Registry) []Stack {
	var stacks []Stack

	for _, qeKey := range registry.SortedKeys(reg.QueryEngines) {
		qe := reg.QueryEngines[qeKey]

		for _, storageKey := range registry.SortedKeys(reg.Storages) {
			storage := reg.Storages[storageKey]

			storageIfaces := matchingStorageInterfaces(reg, storage, qe)
			if len(storageIfaces) == 0 {
				continue
			}

			catalogs := validCatalogs(reg, storage, qe)
			if len(catalogs) == 0 {
				for _, si := range storageIfaces {
					stacks = append(stacks, Stack{
						QueryEngine:      qe,
						Storage:          storage,
						StorageInterface: si,
					})
				}
				continue
			}

			for _, catalog := range catalogs {
				catalogIfaces := matchingCatalogInterfaces(reg, catalog, qe)
				if len(catalogIfaces) == 0 {
					continue
				}
				for _, si := range storageIfaces {
					for _, ci := range catalogIfaces {
						stacks = append(stacks, Stack{
							QueryEngine:      qe,
							Catalog:          &catalog,
							Storage:          storage,
							CatalogInterface: &ci,
							StorageInterface: si,
						})
					}
				}
			}
		}
	}

	logging.Debug(resolverSubsystem, "Resolved %d stacks", len(stacks))
	return stacks
}

// matchingStorageInterfaces keeps the storage's interfaces, in declaration
// order, that the query engine consumes and the registry knows.
func matchingStorageInterfaces(reg *registry.Registry, storage registry.Storage, qe registry.QueryEngine) []registry.StorageInterface {
	var out []registry.StorageInterface
	for _, si := range storage.ImplementsStorageInterfaces {
		iface, known := reg.StorageInterfaces[si]
		if known && slices.Contains(qe.ConsumesStorageInterfaces, si) {
			out = append(out, iface)
		}
	}
	return out
}

func validCatalogs(reg *registry.Registry, storage registry.Storage, qe registry.QueryEngine) []registry.Catalog {
	if len(qe.ConsumesCatalogInterfaces) == 0 {
		return nil
	}

	var out []registry.Catalog
	for _, key := range registry.SortedKeys(reg.Catalogs) {
		catalog := reg.Catalogs[key]
		if intersects(catalog.ConsumesStorageInterfaces, storage.ImplementsStorageInterfaces) {
			out = append(out, catalog)
		}
	}
	return out
}

func matchingCatalogInterfaces(reg *registry.Registry, catalog registry.Catalog, qe registry.QueryEngine) []registry.CatalogInterface {
	var out []registry.CatalogInterface
	for _, ci := range registry.SortedKeys(catalog.ImplementsCatalogInterfaces) {
		iface, known := reg.CatalogInterfaces[ci]
		if known && slices.Contains(qe.ConsumesCatalogInterfaces, ci) {
			out = append(out, iface)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
