package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/notify"
	"github.com/cuemby/strata/pkg/security"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

func newTestController(t *testing.T) *Controller {
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

	secrets, err := security.NewSecretsManagerFromPassword("test-passphrase")
	if err != nil {
		t.Fatalf("NewSecretsManagerFromPassword() error = %v", err)
	}
	keyring := token.NewKeyring(secrets)
	registry := token.NewRegistry(keyring)
	err = s.Update(func(txn *storage.Txn) error {
		if err := keyring.LoadOrInitialize(txn); err != nil {
			return err
		}
		return registry.RegisterIssuer(txn, &types.Issuer{Name: "server", Type: types.IssuerServer, Audiences: []string{"strata"}})
	})
	if err != nil {
		t.Fatalf("bootstrap error = %v", err)
	}
	handler := token.NewHandler(registry, keyring)
	broker := notify.NewBroker()
	t.Cleanup(broker.Stop)

	return New(s, g, authz.New(g), handler, registry, keyring, broker)
}

func putAdmin(t *testing.T, c *Controller) types.ID {
	t.Helper()
	id := types.NewID()
	err := c.Store.Update(func(txn *storage.Txn) error {
		if err := txn.PutNode(types.NewUserNode(&types.User{ID: id, Active: true, GlobalAdmin: true})); err != nil {
			return err
		}
		idx, _ := txn.InternalIndex(id)
		c.Graph.AddNode(id, idx, types.NodeUser)
		return nil
	})
	if err != nil {
		t.Fatalf("putAdmin() error = %v", err)
	}
	return id
}

func putUser(t *testing.T, c *Controller) types.ID {
	t.Helper()
	id := types.NewID()
	err := c.Store.Update(func(txn *storage.Txn) error {
		if err := txn.PutNode(types.NewUserNode(&types.User{ID: id, Active: true})); err != nil {
			return err
		}
		idx, _ := txn.InternalIndex(id)
		c.Graph.AddNode(id, idx, types.NodeUser)
		return nil
	})
	if err != nil {
		t.Fatalf("putUser() error = %v", err)
	}
	return id
}

func requesterFor(id types.ID) *token.Requester {
	return &token.Requester{UserID: id, Method: token.MethodOIDC}
}

// Scenario 1: create a Project, then a Collection underneath it, and read
// the HasPart relation back from the child's side.
func TestControllerCreateResourceHierarchy(t *testing.T) {
	c := newTestController(t)
	admin := putAdmin(t, c)
	now := time.Unix(1700000000, 0).UTC()

	raw, err := c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(admin),
		Variant:   types.VariantProject,
		Name:      "proj-1",
		Now:       now,
	}, "tx-project", now)
	if err != nil {
		t.Fatalf("CreateResource(project) error = %v", err)
	}
	var project types.Resource
	if err := json.Unmarshal(raw, &project); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}

	raw, err = c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(admin),
		ParentID:  project.ID,
		Variant:   types.VariantCollection,
		Name:      "coll-1",
		Now:       now,
	}, "tx-collection", now)
	if err != nil {
		t.Fatalf("CreateResource(collection) error = %v", err)
	}
	var collection types.Resource
	if err := json.Unmarshal(raw, &collection); err != nil {
		t.Fatalf("unmarshal collection: %v", err)
	}

	rels, _, err := c.GetRelations(requesterFor(admin), collection.ID, []types.RelationVariant{types.RelHasPart}, types.DirectionIncoming, 0, 0)
	if err != nil {
		t.Fatalf("GetRelations() error = %v", err)
	}
	if len(rels) != 1 || rels[0].Source != project.ID {
		t.Fatalf("GetRelations() = %+v, want single HasPart edge from %s", rels, project.ID)
	}
}

// Scenario 4: submitting the same tx-id twice must return the identical
// response and must not grow the event log by more than one entry.
func TestControllerTransactionIdempotentByTxID(t *testing.T) {
	c := newTestController(t)
	admin := putAdmin(t, c)
	now := time.Unix(1700000001, 0).UTC()

	write := &CreateResource{Requester: requesterFor(admin), Variant: types.VariantProject, Name: "idempotent", Now: now}

	first, err := c.Transaction(context.Background(), write, "dup-tx", now)
	if err != nil {
		t.Fatalf("first Transaction() error = %v", err)
	}
	second, err := c.Transaction(context.Background(), write, "dup-tx", now)
	if err != nil {
		t.Fatalf("second Transaction() error = %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("Transaction() not idempotent: first=%s second=%s", first, second)
	}

	var count int
	err = c.Store.View(func(txn *storage.Txn) error {
		return txn.EventsSince(0, func(ev *types.Event) (bool, error) {
			count++
			return true, nil
		})
	})
	if err != nil {
		t.Fatalf("EventsSince() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("events after duplicate tx-id = %d, want 1", count)
	}
}

// Scenario 5: a rule that rejects every object it's bound to causes
// CreateResource under that object to fail FailedPrecondition.
func TestControllerCreateResourceRejectedByRule(t *testing.T) {
	c := newTestController(t)
	admin := putAdmin(t, c)
	now := time.Unix(1700000002, 0).UTC()

	projRaw, err := c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(admin), Variant: types.VariantProject, Name: "ruled-project", Now: now,
	}, "tx-ruled-project", now)
	if err != nil {
		t.Fatalf("CreateResource(project) error = %v", err)
	}
	var project types.Resource
	_ = json.Unmarshal(projRaw, &project)

	ruleRaw, err := c.Transaction(context.Background(), &CreateRule{
		Requester: requesterFor(admin), Expression: `false`, Now: now,
	}, "tx-rule", now)
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	var rule types.Rule
	_ = json.Unmarshal(ruleRaw, &rule)

	_, err = c.Transaction(context.Background(), &CreateRuleBinding{
		Requester: requesterFor(admin), RuleID: rule.ID, ObjectID: project.ID, Cascading: true, Now: now,
	}, "tx-binding", now)
	if err != nil {
		t.Fatalf("CreateRuleBinding() error = %v", err)
	}

	_, err = c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(admin), ParentID: project.ID, Variant: types.VariantCollection, Name: "should-fail", Now: now,
	}, "tx-rejected-child", now)
	if err == nil {
		t.Fatal("CreateResource() under rule-rejected parent = nil, want FailedPrecondition error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindFailedPrecondition {
		t.Fatalf("CreateResource() error = %v, want *Error{Kind: FailedPrecondition}", err)
	}
}

// Scenario 6: snapshotting a Collection flips every descendant Dataset to
// immutable in the same transaction.
func TestControllerSnapshotCollectionCascadesToDescendants(t *testing.T) {
	c := newTestController(t)
	admin := putAdmin(t, c)
	now := time.Unix(1700000003, 0).UTC()

	projRaw, _ := c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(admin), Variant: types.VariantProject, Name: "snap-project", Now: now,
	}, "tx-snap-project", now)
	var project types.Resource
	_ = json.Unmarshal(projRaw, &project)

	collRaw, err := c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(admin), ParentID: project.ID, Variant: types.VariantCollection, Name: "snap-coll", Now: now,
	}, "tx-snap-coll", now)
	if err != nil {
		t.Fatalf("CreateResource(collection) error = %v", err)
	}
	var collection types.Resource
	_ = json.Unmarshal(collRaw, &collection)

	dsRaw, err := c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(admin), ParentID: collection.ID, Variant: types.VariantDataset, Name: "snap-ds", Now: now,
	}, "tx-snap-ds", now)
	if err != nil {
		t.Fatalf("CreateResource(dataset) error = %v", err)
	}
	var dataset types.Resource
	_ = json.Unmarshal(dsRaw, &dataset)

	if _, err := c.Transaction(context.Background(), &SnapshotCollection{
		Requester: requesterFor(admin), ID: collection.ID, Now: now,
	}, "tx-snapshot", now); err != nil {
		t.Fatalf("SnapshotCollection() error = %v", err)
	}

	got, err := c.GetResource(requesterFor(admin), dataset.ID)
	if err != nil {
		t.Fatalf("GetResource(dataset) error = %v", err)
	}
	if !got.Snapshot || got.IsMutable() {
		t.Fatalf("dataset after SnapshotCollection: Snapshot=%v IsMutable=%v, want Snapshot=true IsMutable=false", got.Snapshot, got.IsMutable())
	}
}

// Scenario 3: a token minted with a ScopeResource cap may not itself exceed
// the requester's own effective permission on the scoped resource.
func TestControllerCreateTokenRejectsScopeAboveOwnPermission(t *testing.T) {
	c := newTestController(t)
	user := putUser(t, c)
	now := time.Unix(1700000004, 0).UTC()

	// user has no relation to this project at all, so Admin scope is
	// above what they hold (none).
	projRaw, err := c.Transaction(context.Background(), &CreateResource{
		Requester: requesterFor(putAdmin(t, c)), Variant: types.VariantProject, Name: "scope-project", Now: now,
	}, "tx-scope-project", now)
	if err != nil {
		t.Fatalf("CreateResource(project) error = %v", err)
	}
	var project types.Resource
	_ = json.Unmarshal(projRaw, &project)

	_, err = c.Transaction(context.Background(), &CreateToken{
		Requester: requesterFor(user),
		Name:      "over-scoped",
		Scope:     types.Scope{Kind: types.ScopeResource, ResourceID: project.ID, Level: types.PermissionAdmin},
		ExpiresAt: now.Add(time.Hour),
		Now:       now,
	}, "tx-over-scoped-token", now)
	if err == nil {
		t.Fatal("CreateToken() with scope above own permission = nil, want PermissionDenied error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindPermissionDenied {
		t.Fatalf("CreateToken() error = %v, want *Error{Kind: PermissionDenied}", err)
	}
}
