package notify

import (
	"testing"
	"time"

	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

func newTestGraph(t *testing.T) (*graph.Graph, *storage.Store) {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	txn, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer txn.Rollback()

	g, err := graph.Load(txn)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return g, s
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

func link(t *testing.T, s *storage.Store, g *graph.Graph, source, target types.ID, variant types.RelationVariant) {
	t.Helper()
	err := s.Update(func(txn *storage.Txn) error {
		_, err := txn.AddRelation(source, target, variant)
		return err
	})
	if err != nil {
		t.Fatalf("AddRelation() error = %v", err)
	}
	if err := g.AddEdge(source, target, variant); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
}

func TestChecksumDeterministicAcrossOrdering(t *testing.T) {
	a, b := types.NewID(), types.NewID()

	c1, err := Checksum(types.EventResourceUpdated, []types.ID{a, b})
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	c2, err := Checksum(types.EventResourceUpdated, []types.ID{b, a})
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if c1 != c2 {
		t.Errorf("Checksum() not order-independent: %d != %d", c1, c2)
	}

	c3, err := Checksum(types.EventResourceDeleted, []types.ID{a, b})
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if c3 == c1 {
		t.Error("Checksum() collided across different event kinds")
	}
}

func TestSubjectEncodesHierarchy(t *testing.T) {
	g, s := newTestGraph(t)
	project := putResource(t, s, g, types.VariantProject)
	collection := putResource(t, s, g, types.VariantCollection)
	link(t, s, g, project, collection, types.RelHasPart)

	txn, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer txn.Rollback()

	subject, err := Subject(g, resolveResource(txn), collection)
	if err != nil {
		t.Fatalf("Subject() error = %v", err)
	}
	want := "RESOURCE." + project.String() + "." + collection.String()
	if subject != want {
		t.Errorf("Subject() = %q, want %q", subject, want)
	}
}

func TestBrokerDeliversToMatchingSubscriptionOnly(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	subA := b.Subscribe("RESOURCE.proj-a")
	subB := b.Subscribe("RESOURCE.proj-b")
	defer b.Unsubscribe(subA)
	defer b.Unsubscribe(subB)

	b.Publish(&Notification{
		Event:   &types.Event{ID: 1, Kind: types.EventResourceUpdated},
		Subject: "RESOURCE.proj-a.coll-1",
	})

	select {
	case n := <-subA.C():
		if n.Event.ID != 1 {
			t.Errorf("subA got event %d, want 1", n.Event.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("subA never received matching notification")
	}

	select {
	case n := <-subB.C():
		t.Fatalf("subB received non-matching notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitAfterCommitCascadesSnapshotToDescendants(t *testing.T) {
	g, s := newTestGraph(t)
	project := putResource(t, s, g, types.VariantProject)
	collection := putResource(t, s, g, types.VariantCollection)
	dataset := putResource(t, s, g, types.VariantDataset)
	link(t, s, g, project, collection, types.RelHasPart)
	link(t, s, g, collection, dataset, types.RelHasPart)

	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe("")
	defer b.Unsubscribe(sub)

	var ev *types.Event
	err := s.Update(func(txn *storage.Txn) error {
		registered, err := Register(txn, types.EventResourceSnapshotted, []types.ID{collection}, time.Unix(0, 0))
		if err != nil {
			return err
		}
		ev = registered
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	err = s.View(func(txn *storage.Txn) error {
		EmitAfterCommit(b, txn, g, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	seenUpdatedFor := map[types.ID]bool{}
	seenSnapshotted := false
	deadline := time.After(time.Second)
	for i := 0; i < 2; i++ {
		select {
		case n := <-sub.C():
			switch n.Event.Kind {
			case types.EventResourceSnapshotted:
				seenSnapshotted = true
			case types.EventResourceUpdated:
				seenUpdatedFor[n.Event.Touched[0]] = true
			}
		case <-deadline:
			t.Fatal("did not receive expected cascade of notifications")
		}
	}

	if !seenSnapshotted {
		t.Error("never saw the originating Snapshotted event")
	}
	if !seenUpdatedFor[dataset] {
		t.Errorf("never saw a synthesized Updated event for descendant dataset %s", dataset)
	}
}

func TestReplayStopsAtSubscriberWatermark(t *testing.T) {
	g, s := newTestGraph(t)
	resource := putResource(t, s, g, types.VariantProject)

	subscriberID := types.NewID()
	err := s.Update(func(txn *storage.Txn) error {
		return txn.PutSubscriber(&types.Subscriber{
			ID:               subscriberID,
			TargetID:         resource,
			IncludeSubtree:   true,
			LastAckedEventID: 0,
			CreatedAt:        time.Unix(0, 0),
		})
	})
	if err != nil {
		t.Fatalf("PutSubscriber() error = %v", err)
	}

	err = s.Update(func(txn *storage.Txn) error {
		if _, err := Register(txn, types.EventResourceUpdated, []types.ID{resource}, time.Unix(0, 0)); err != nil {
			return err
		}
		if _, err := Register(txn, types.EventResourceUpdated, []types.ID{resource}, time.Unix(0, 0)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer txn.Rollback()

	var delivered []uint64
	if err := Replay(txn, g, subscriberID, func(n *Notification) error {
		delivered = append(delivered, n.Event.ID)
		return nil
	}); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(delivered) != 2 {
		t.Fatalf("Replay() delivered %d events, want 2", len(delivered))
	}

	if err := Ack(txn, subscriberID, delivered[0]); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}

	delivered = nil
	if err := Replay(txn, g, subscriberID, func(n *Notification) error {
		delivered = append(delivered, n.Event.ID)
		return nil
	}); err != nil {
		t.Fatalf("Replay() after ack error = %v", err)
	}
	if len(delivered) != 1 || delivered[0] != 2 {
		t.Fatalf("Replay() after ack = %v, want [2]", delivered)
	}
}
