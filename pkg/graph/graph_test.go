package graph

import (
	"testing"

	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

func newTestGraph(t *testing.T) (*Graph, *storage.Store) {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	g, err := Load(mustTxn(t, s))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return g, s
}

func mustTxn(t *testing.T, s *storage.Store) *storage.Txn {
	t.Helper()
	txn, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	t.Cleanup(txn.Rollback)
	return txn
}

func putResource(t *testing.T, s *storage.Store, g *Graph, variant types.ResourceVariant) types.ID {
	t.Helper()
	id := types.NewID()
	node := types.NewResourceNode(&types.Resource{ID: id, Variant: variant, Status: types.StatusAvailable})
	var idx uint32
	err := s.Update(func(txn *storage.Txn) error {
		if err := txn.PutNode(node); err != nil {
			return err
		}
		var ok bool
		idx, ok = txn.InternalIndex(id)
		if !ok {
			t.Fatal("no internal index assigned")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PutNode() error = %v", err)
	}
	g.AddNode(id, idx, types.NodeResource)
	return id
}

func putUser(t *testing.T, s *storage.Store, g *Graph) types.ID {
	t.Helper()
	id := types.NewID()
	node := types.NewUserNode(&types.User{ID: id, Active: true})
	var idx uint32
	err := s.Update(func(txn *storage.Txn) error {
		if err := txn.PutNode(node); err != nil {
			return err
		}
		var ok bool
		idx, ok = txn.InternalIndex(id)
		if !ok {
			t.Fatal("no internal index assigned")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PutNode() error = %v", err)
	}
	g.AddNode(id, idx, types.NodeUser)
	return id
}

func link(t *testing.T, g *Graph, source, target types.ID, variant types.RelationVariant) {
	t.Helper()
	if err := g.AddEdge(source, target, variant); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
}

// TestPermissionInheritance checks that a user with Write on a Collection
// inherits Write on its Dataset and None on the Project above it.
func TestPermissionInheritance(t *testing.T) {
	g, store := newTestGraph(t)

	project := putResource(t, store, g, types.VariantProject)
	collection := putResource(t, store, g, types.VariantCollection)
	dataset := putResource(t, store, g, types.VariantDataset)
	user := putUser(t, store, g)

	link(t, g, project, collection, types.RelHasPart)
	link(t, g, collection, dataset, types.RelHasPart)
	link(t, g, user, collection, types.RelPermissionWrite)

	if got := g.GetPermissions(dataset, user, false); got != types.PermissionWrite {
		t.Errorf("GetPermissions(dataset) = %v, want Write", got)
	}
	if got := g.GetPermissions(project, user, false); got != types.PermissionNone {
		t.Errorf("GetPermissions(project) = %v, want None", got)
	}
	if got := g.GetPermissions(collection, user, false); got != types.PermissionWrite {
		t.Errorf("GetPermissions(collection) = %v, want Write", got)
	}
}

func TestGetPermissionsGlobalAdminShortCircuits(t *testing.T) {
	g, store := newTestGraph(t)
	resource := putResource(t, store, g, types.VariantObject)
	user := putUser(t, store, g)

	if got := g.GetPermissions(resource, user, true); got != types.PermissionAdmin {
		t.Errorf("GetPermissions(globalAdmin) = %v, want Admin", got)
	}
}

func TestHasCycleRejectsClosingLoop(t *testing.T) {
	g, store := newTestGraph(t)
	project := putResource(t, store, g, types.VariantProject)
	collection := putResource(t, store, g, types.VariantCollection)
	link(t, g, project, collection, types.RelHasPart)

	if !g.HasCycle(collection, project) {
		t.Error("HasCycle(collection, project) = false, want true (would close a loop)")
	}
	if g.HasCycle(project, collection) {
		t.Error("HasCycle(project, collection) = true, want false (same direction as the existing edge)")
	}
}

func TestSubtreeAndAncestors(t *testing.T) {
	g, store := newTestGraph(t)
	project := putResource(t, store, g, types.VariantProject)
	collection := putResource(t, store, g, types.VariantCollection)
	dataset := putResource(t, store, g, types.VariantDataset)
	link(t, g, project, collection, types.RelHasPart)
	link(t, g, collection, dataset, types.RelHasPart)

	sub := toSet(g.Subtree(project))
	for _, id := range []types.ID{project, collection, dataset} {
		if _, ok := sub[id]; !ok {
			t.Errorf("Subtree(project) missing %s", id)
		}
	}

	anc := toSet(g.Ancestors(dataset))
	for _, id := range []types.ID{dataset, collection, project} {
		if _, ok := anc[id]; !ok {
			t.Errorf("Ancestors(dataset) missing %s", id)
		}
	}
}

func toSet(ids []types.ID) map[types.ID]struct{} {
	out := make(map[types.ID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
