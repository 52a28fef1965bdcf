package dependency

import (
	"fmt"
	"sort"
	"strings"
)

// NodeState tracks where a component is in its lifecycle. The assembler
// updates it as components are acquired and released.
type NodeState int

const (
	StateUnknown NodeState = iota
	StatePending
	StateStarting
	StateReady
	StateReleased
	StateError
)

func (s NodeState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateReleased:
		return "released"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// NodeID is the unique identifier for a node inside a dependency graph,
// conventionally "<role>:<key>" such as "storage:minio".
type NodeID string

// NodeKind is the component role a node stands for.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindStorage
	KindCatalog
	KindQueryEngine
)

func (k NodeKind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindCatalog:
		return "catalog"
	case KindQueryEngine:
		return "query_engine"
	default:
		return "unknown"
	}
}

// ID builds the conventional node id for a component.
func ID(kind NodeKind, key string) NodeID {
	return NodeID(kind.String() + ":" + key)
}

// Node is one component together with the components it depends on.
type Node struct {
	ID           NodeID
	FriendlyName string
	Kind         NodeKind
	DependsOn    []NodeID
	State        NodeState
}

// Graph answers dependency queries over a handful of nodes.
type Graph struct {
	nodes map[NodeID]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds (or replaces) a node in the graph.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	copied := n
	copied.DependsOn = append([]NodeID(nil), n.DependsOn...)
	g.nodes[n.ID] = &copied
}

// Get returns a pointer to the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// SetState updates the lifecycle state of a node. Unknown ids are ignored.
func (g *Graph) SetState(id NodeID, state NodeState) {
	if n, ok := g.nodes[id]; ok {
		n.State = state
	}
}

// Dependencies returns a copy of the immediate dependency IDs for the given node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns the sorted IDs of nodes that directly depend on id.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if dep == id {
				res = append(res, n.ID)
				break
			}
		}
	}
	sortIDs(res)
	return res
}

// TopologicalOrder returns every node with dependencies before dependents.
// Ties are broken by id so the order is stable across runs.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	indegree := make(map[NodeID]int, len(g.nodes))
	for id, n := range g.nodes {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range n.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("node %s depends on unknown node %s", id, dep)
			}
			indegree[id]++
		}
	}

	var ready []NodeID
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortIDs(ready)

	order := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []NodeID
		for _, dependent := range g.Dependents(id) {
			for _, dep := range g.nodes[dependent].DependsOn {
				if dep == id {
					indegree[dependent]--
				}
			}
			if indegree[dependent] == 0 {
				unlocked = append(unlocked, dependent)
			}
		}
		ready = append(ready, unlocked...)
		sortIDs(ready)
	}

	if len(order) != len(g.nodes) {
		var stuck []string
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, string(id))
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("dependency cycle among: %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
