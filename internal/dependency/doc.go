// Package dependency provides the small directed acyclic graph used to order
// component acquisition and release within a stack.
//
// Storage is the foundation. Catalogs depend on their storage, and query
// engines depend on both:
//
//	storage
//	    ↓
//	catalog (optional)
//	    ↓
//	query engine
//
// The stack assembler adds one node per component and acquires them in
// TopologicalOrder; release walks the same order backwards.
//
//	g := dependency.New()
//	g.AddNode(dependency.Node{ID: "storage:minio", Kind: dependency.KindStorage})
//	g.AddNode(dependency.Node{ID: "catalog:nessie", Kind: dependency.KindCatalog,
//	    DependsOn: []dependency.NodeID{"storage:minio"}})
//	order, err := g.TopologicalOrder()
//	// order: [storage:minio catalog:nessie]
//
// TopologicalOrder reports missing dependencies and cycles as errors. The
// Graph type is not thread-safe; callers must synchronise concurrent writes.
package dependency
