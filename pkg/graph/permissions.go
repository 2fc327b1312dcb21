package graph

import "github.com/cuemby/strata/pkg/types"

// Parents returns every node directly reachable by following incoming
// HasPart edges (i.e. the nodes that have id as a HasPart target).
func (g *Graph) Parents(id types.ID) []types.ID {
	return g.neighbors(id, g.in, types.RelHasPart)
}

// Children returns every node directly reachable by following outgoing
// HasPart edges from id.
func (g *Graph) Children(id types.ID) []types.ID {
	return g.neighbors(id, g.out, types.RelHasPart)
}

func (g *Graph) neighbors(id types.ID, set edgeSet, variant types.RelationVariant) []types.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.idToIdx[id]
	if !ok {
		return nil
	}
	var out []types.ID
	for t := range set[idx][variant] {
		if otherID, ok := g.idxToID[t]; ok {
			out = append(out, otherID)
		}
	}
	return out
}

// Subtree returns id and every node reachable from it by following outgoing
// HasPart edges transitively.
func (g *Graph) Subtree(id types.ID) []types.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	root, ok := g.idToIdx[id]
	if !ok {
		return nil
	}
	visited := g.bfs(root, g.out, types.RelHasPart)
	return g.idsOf(visited)
}

// Ancestors returns id and every node reachable from it by following
// incoming HasPart edges transitively — resource is its own ancestor.
func (g *Graph) Ancestors(id types.ID) []types.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	root, ok := g.idToIdx[id]
	if !ok {
		return nil
	}
	visited := g.bfs(root, g.in, types.RelHasPart)
	return g.idsOf(visited)
}

// HasCycle reports whether adding a HasPart edge parent->child would create
// a cycle, i.e. whether parent is already reachable from child by following
// outgoing HasPart edges.
func (g *Graph) HasCycle(parent, child types.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	childIdx, ok := g.idToIdx[child]
	if !ok {
		return false
	}
	parentIdx, ok := g.idToIdx[parent]
	if !ok {
		return false
	}
	if childIdx == parentIdx {
		return true
	}
	visited := g.bfs(childIdx, g.out, types.RelHasPart)
	_, found := visited[parentIdx]
	return found
}

// ReachablePrincipals returns the closure of principals reachable from
// start by forward traversal of SharesPermission* and GroupPartOfRealm*
// edges, including start itself.
func (g *Graph) ReachablePrincipals(start types.ID) []types.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.idToIdx[start]
	if !ok {
		return nil
	}
	visited := g.multiBFS(idx, g.out, types.RelSharesPermission, types.RelGroupPartOfRealm)
	return g.idsOf(visited)
}

// GetPermissions implements effective-permission algorithm. When
// isGlobalAdmin is true it short-circuits to PermissionAdmin (step 4);
// otherwise it computes the max permission edge reachable from principal to
// any ancestor of resource, folding in the implied-Admin edges
// GroupAdministratesRealm and OwnsProject.
func (g *Graph) GetPermissions(resource, principal types.ID, isGlobalAdmin bool) types.Permission {
	if isGlobalAdmin {
		return types.PermissionAdmin
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	resourceIdx, ok := g.idToIdx[resource]
	if !ok {
		return types.PermissionNone
	}
	principalIdx, ok := g.idToIdx[principal]
	if !ok {
		return types.PermissionNone
	}

	ancestors := g.bfs(resourceIdx, g.in, types.RelHasPart)
	reachable := g.multiBFS(principalIdx, g.out, types.RelSharesPermission, types.RelGroupPartOfRealm)

	best := types.PermissionNone

	for p := range reachable {
		for variant, targets := range g.out[p] {
			level, isPermission := types.PermissionVariant(variant)
			if !isPermission {
				continue
			}
			for anc := range targets {
				if _, isAncestor := ancestors[anc]; isAncestor && level > best {
					best = level
				}
			}
		}
	}

	// OwnsProject on any ancestor implies Admin.
	for anc := range ancestors {
		for p := range g.in[anc][types.RelOwnsProject] {
			if _, ok := reachable[p]; ok {
				return types.PermissionAdmin
			}
		}
	}

	// GroupAdministratesRealm on the realm containing any ancestor project
	// implies Admin.
	for anc := range ancestors {
		for realm := range g.out[anc][types.RelProjectPartOfRealm] {
			for p := range g.in[realm][types.RelGroupAdministratesRealm] {
				if _, ok := reachable[p]; ok {
					return types.PermissionAdmin
				}
			}
		}
	}

	return best
}

func (g *Graph) bfs(start uint32, set edgeSet, variant types.RelationVariant) map[uint32]struct{} {
	visited := map[uint32]struct{}{start: {}}
	queue := []uint32{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range set[cur][variant] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return visited
}

func (g *Graph) multiBFS(start uint32, set edgeSet, variants ...types.RelationVariant) map[uint32]struct{} {
	visited := map[uint32]struct{}{start: {}}
	queue := []uint32{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, variant := range variants {
			for next := range set[cur][variant] {
				if _, seen := visited[next]; seen {
					continue
				}
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return visited
}

func (g *Graph) idsOf(indices map[uint32]struct{}) []types.ID {
	out := make([]types.ID, 0, len(indices))
	for idx := range indices {
		if id, ok := g.idxToID[idx]; ok {
			out = append(out, id)
		}
	}
	return out
}
