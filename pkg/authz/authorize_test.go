package authz

import (
	"testing"

	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

func setup(t *testing.T) (*storage.Store, *graph.Graph) {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	var g *graph.Graph
	err = s.View(func(txn *storage.Txn) error {
		var err error
		g, err = graph.Load(txn)
		return err
	})
	if err != nil {
		t.Fatalf("graph.Load() error = %v", err)
	}
	return s, g
}

func putResource(t *testing.T, s *storage.Store, g *graph.Graph, variant types.ResourceVariant) types.ID {
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

func putUser(t *testing.T, s *storage.Store, g *graph.Graph, globalAdmin bool) types.ID {
	t.Helper()
	id := types.NewID()
	node := types.NewUserNode(&types.User{ID: id, Active: true, GlobalAdmin: globalAdmin})
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

func TestAuthorizePermissionDeniedWithoutEdge(t *testing.T) {
	s, g := setup(t)
	resource := putResource(t, s, g, types.VariantObject)
	user := putUser(t, s, g, false)
	authz := New(g)

	err := s.View(func(txn *storage.Txn) error {
		req := &token.Requester{UserID: user, Method: token.MethodOIDC}
		return authz.Authorize(txn, req, RequirePermission(types.PermissionRead, resource))
	})
	if err == nil {
		t.Error("Authorize() = nil, want unauthorized error")
	}
}

func TestAuthorizeGlobalAdminShortCircuitsPermission(t *testing.T) {
	s, g := setup(t)
	resource := putResource(t, s, g, types.VariantObject)
	admin := putUser(t, s, g, true)
	authz := New(g)

	err := s.View(func(txn *storage.Txn) error {
		req := &token.Requester{UserID: admin, Method: token.MethodOIDC}
		return authz.Authorize(txn, req, RequirePermission(types.PermissionAdmin, resource))
	})
	if err != nil {
		t.Errorf("Authorize() = %v, want nil (global admin)", err)
	}
}

func TestAuthorizeTokenScopeCap(t *testing.T) {
	s, g := setup(t)
	project := putResource(t, s, g, types.VariantProject)
	collection := putResource(t, s, g, types.VariantCollection)
	outside := putResource(t, s, g, types.VariantProject)
	user := putUser(t, s, g, false)
	authz := New(g)

	if err := g.AddEdge(project, collection, types.RelHasPart); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if err := g.AddEdge(user, project, types.RelPermissionAdmin); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}

	scoped := &token.Requester{
		UserID: user,
		Method: token.MethodInternal,
		Scope:  &types.Scope{Kind: types.ScopeResource, ResourceID: project, Level: types.PermissionRead},
	}

	err := s.View(func(txn *storage.Txn) error {
		if err := authz.Authorize(txn, scoped, RequirePermission(types.PermissionRead, collection)); err != nil {
			t.Errorf("Authorize(in-scope, within level) = %v, want nil", err)
		}
		if err := authz.Authorize(txn, scoped, RequirePermission(types.PermissionWrite, collection)); err == nil {
			t.Error("Authorize(above scope level) = nil, want unauthorized error")
		}
		if err := authz.Authorize(txn, scoped, RequirePermission(types.PermissionRead, outside)); err == nil {
			t.Error("Authorize(outside scope subtree) = nil, want unauthorized error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}
