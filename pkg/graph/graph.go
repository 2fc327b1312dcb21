package graph

import (
	"fmt"
	"sync"

	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

type edgeSet map[uint32]map[types.RelationVariant]map[uint32]struct{}

// Graph is the in-memory mirror described in doc.go. All reads take the
// read lock; every mutating method is expected to be called from inside the
// store's write transaction, so callers serialize writes themselves — the
// mutex here only protects concurrent readers against a writer.
type Graph struct {
	mu sync.RWMutex

	variant map[uint32]types.NodeVariant
	idToIdx map[types.ID]uint32
	idxToID map[uint32]types.ID

	out edgeSet // source idx -> variant -> set of target idx
	in  edgeSet // target idx -> variant -> set of source idx
}

func newGraph() *Graph {
	return &Graph{
		variant: map[uint32]types.NodeVariant{},
		idToIdx: map[types.ID]uint32{},
		idxToID: map[uint32]types.ID{},
		out:     edgeSet{},
		in:      edgeSet{},
	}
}

// Load rebuilds the graph mirror from the store's current contents. Call
// once at process startup.
func Load(txn *storage.Txn) (*Graph, error) {
	g := newGraph()

	if err := txn.AllNodes(func(n *types.Node) error {
		idx, ok := txn.InternalIndex(n.ID)
		if !ok {
			return fmt.Errorf("node %s has no internal index", n.ID)
		}
		g.variant[idx] = n.Variant
		g.idToIdx[n.ID] = idx
		g.idxToID[idx] = n.ID
		return nil
	}); err != nil {
		return nil, err
	}

	if err := txn.AllRelations(func(r *types.Relation) error {
		srcIdx, ok := txn.InternalIndex(r.Source)
		if !ok {
			return fmt.Errorf("relation source %s has no internal index", r.Source)
		}
		dstIdx, ok := txn.InternalIndex(r.Target)
		if !ok {
			return fmt.Errorf("relation target %s has no internal index", r.Target)
		}
		g.linkIndices(srcIdx, dstIdx, r.Variant)
		return nil
	}); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Graph) linkIndices(srcIdx, dstIdx uint32, variant types.RelationVariant) {
	addEdge(g.out, srcIdx, dstIdx, variant)
	addEdge(g.in, dstIdx, srcIdx, variant)
}

func addEdge(set edgeSet, from, to uint32, variant types.RelationVariant) {
	byVariant, ok := set[from]
	if !ok {
		byVariant = map[types.RelationVariant]map[uint32]struct{}{}
		set[from] = byVariant
	}
	targets, ok := byVariant[variant]
	if !ok {
		targets = map[uint32]struct{}{}
		byVariant[variant] = targets
	}
	targets[to] = struct{}{}
}

func removeEdge(set edgeSet, from, to uint32, variant types.RelationVariant) {
	byVariant, ok := set[from]
	if !ok {
		return
	}
	targets, ok := byVariant[variant]
	if !ok {
		return
	}
	delete(targets, to)
	if len(targets) == 0 {
		delete(byVariant, variant)
	}
	if len(byVariant) == 0 {
		delete(set, from)
	}
}

// AddNode registers a freshly persisted node in the mirror.
func (g *Graph) AddNode(id types.ID, idx uint32, variant types.NodeVariant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.variant[idx] = variant
	g.idToIdx[id] = idx
	g.idxToID[idx] = id
}

// RemoveNode drops a node and every edge touching it.
func (g *Graph) RemoveNode(id types.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx, ok := g.idToIdx[id]
	if !ok {
		return
	}
	delete(g.variant, idx)
	delete(g.idToIdx, id)
	delete(g.idxToID, idx)
	delete(g.out, idx)
	delete(g.in, idx)
	for _, byVariant := range g.out {
		for v, targets := range byVariant {
			delete(targets, idx)
			if len(targets) == 0 {
				delete(byVariant, v)
			}
		}
	}
	for _, byVariant := range g.in {
		for v, targets := range byVariant {
			delete(targets, idx)
			if len(targets) == 0 {
				delete(byVariant, v)
			}
		}
	}
}

// AddEdge records a new relation in the mirror.
func (g *Graph) AddEdge(source, target types.ID, variant types.RelationVariant) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	srcIdx, ok := g.idToIdx[source]
	if !ok {
		return fmt.Errorf("graph: unknown source node %s", source)
	}
	dstIdx, ok := g.idToIdx[target]
	if !ok {
		return fmt.Errorf("graph: unknown target node %s", target)
	}
	g.linkIndices(srcIdx, dstIdx, variant)
	return nil
}

// RemoveEdge drops one relation from the mirror.
func (g *Graph) RemoveEdge(source, target types.ID, variant types.RelationVariant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	srcIdx, ok := g.idToIdx[source]
	if !ok {
		return
	}
	dstIdx, ok := g.idToIdx[target]
	if !ok {
		return
	}
	removeEdge(g.out, srcIdx, dstIdx, variant)
	removeEdge(g.in, dstIdx, srcIdx, variant)
}

// EdgeCount returns the total number of edges currently mirrored, for the
// "Graph mirror equals store relation multiset" testable property.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, byVariant := range g.out {
		for _, targets := range byVariant {
			n += len(targets)
		}
	}
	return n
}

// NodeVariant returns the variant tag recorded for id, if the node is
// present in the mirror.
func (g *Graph) NodeVariant(id types.ID) (types.NodeVariant, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.idToIdx[id]
	if !ok {
		return "", false
	}
	v, ok := g.variant[idx]
	return v, ok
}
