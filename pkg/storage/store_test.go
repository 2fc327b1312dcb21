package storage

import (
	"testing"
	"time"

	"github.com/cuemby/strata/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenBootstrapsRelationInfo(t *testing.T) {
	s := openTestStore(t)

	err := s.View(func(txn *Txn) error {
		infos, err := txn.AllRelationInfos()
		if err != nil {
			return err
		}
		if len(infos) != types.SeededRelationCount {
			t.Fatalf("got %d seeded relation infos, want %d", len(infos), types.SeededRelationCount)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestOpenTwiceIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s2.Close()

	_ = s2.View(func(txn *Txn) error {
		infos, err := txn.AllRelationInfos()
		if err != nil {
			t.Fatalf("AllRelationInfos() error = %v", err)
		}
		if len(infos) != types.SeededRelationCount {
			t.Errorf("got %d relation infos after reopen, want %d", len(infos), types.SeededRelationCount)
		}
		return nil
	})
}

func TestPutGetDeleteNode(t *testing.T) {
	s := openTestStore(t)

	res := &types.Resource{
		ID:      types.NewID(),
		Variant: types.VariantProject,
		Name:    "alpha",
		Status:  types.StatusAvailable,
	}
	node := types.NewResourceNode(res)

	err := s.Update(func(txn *Txn) error {
		return txn.PutNode(node)
	})
	if err != nil {
		t.Fatalf("PutNode() error = %v", err)
	}

	err = s.View(func(txn *Txn) error {
		got, err := txn.GetNode(res.ID)
		if err != nil {
			return err
		}
		if got.Resource.Name != "alpha" {
			t.Errorf("Name = %q, want %q", got.Resource.Name, "alpha")
		}
		if _, ok := txn.InternalIndex(res.ID); !ok {
			t.Error("expected an internal index to be assigned on PutNode")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	err = s.Update(func(txn *Txn) error {
		return txn.DeleteNode(res.ID)
	})
	if err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}

	err = s.View(func(txn *Txn) error {
		if _, err := txn.GetNode(res.ID); !IsNotFound(err) {
			t.Errorf("GetNode() after delete = %v, want NotFound", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestPutNodeRejectsDuplicate(t *testing.T) {
	s := openTestStore(t)
	res := &types.Resource{ID: types.NewID(), Variant: types.VariantObject}
	node := types.NewResourceNode(res)

	if err := s.Update(func(txn *Txn) error { return txn.PutNode(node) }); err != nil {
		t.Fatalf("first PutNode() error = %v", err)
	}
	err := s.Update(func(txn *Txn) error { return txn.PutNode(node) })
	if !IsConflict(err) {
		t.Errorf("second PutNode() = %v, want Conflict", err)
	}
}

func TestAddRemoveQueryRelations(t *testing.T) {
	s := openTestStore(t)
	parent, child := types.NewID(), types.NewID()

	var seq uint32
	err := s.Update(func(txn *Txn) error {
		rel, err := txn.AddRelation(parent, child, types.RelHasPart)
		if err != nil {
			return err
		}
		seq = rel.Sequence
		return nil
	})
	if err != nil {
		t.Fatalf("AddRelation() error = %v", err)
	}

	err = s.View(func(txn *Txn) error {
		out, _, err := txn.GetRelations(RelationFilter{Node: parent, Direction: types.DirectionOutgoing})
		if err != nil {
			return err
		}
		if len(out) != 1 || out[0].Target != child {
			t.Errorf("GetRelations(outgoing) = %+v, want one edge to %s", out, child)
		}
		in, _, err := txn.GetRelations(RelationFilter{Node: child, Direction: types.DirectionIncoming})
		if err != nil {
			return err
		}
		if len(in) != 1 || in[0].Source != parent {
			t.Errorf("GetRelations(incoming) = %+v, want one edge from %s", in, parent)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	err = s.Update(func(txn *Txn) error { return txn.RemoveRelation(seq) })
	if err != nil {
		t.Fatalf("RemoveRelation() error = %v", err)
	}

	err = s.View(func(txn *Txn) error {
		out, _, err := txn.GetRelations(RelationFilter{Node: parent, Direction: types.DirectionOutgoing})
		if err != nil {
			return err
		}
		if len(out) != 0 {
			t.Errorf("GetRelations() after remove = %+v, want empty", out)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestFieldIndexRoundTrip(t *testing.T) {
	s := openTestStore(t)
	res := &types.Resource{ID: types.NewID(), Variant: types.VariantDataset, Name: "seismic-survey"}
	node := types.NewResourceNode(res)

	err := s.Update(func(txn *Txn) error {
		if err := txn.PutNode(node); err != nil {
			return err
		}
		return txn.IndexFields(node)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	err = s.View(func(txn *Txn) error {
		ids, err := txn.QueryField(FieldName, "seismic-survey")
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != res.ID {
			t.Errorf("QueryField(FieldName) = %v, want [%s]", ids, res.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestEventsSinceReplaysInOrder(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	var ids []uint64
	err := s.Update(func(txn *Txn) error {
		for i := 0; i < 3; i++ {
			ev, err := txn.RegisterEvent(types.EventResourceCreated, nil, uint64(i), now)
			if err != nil {
				return err
			}
			ids = append(ids, ev.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var replayed []uint64
	err = s.View(func(txn *Txn) error {
		return txn.EventsSince(ids[0], func(ev *types.Event) (bool, error) {
			replayed = append(replayed, ev.ID)
			return true, nil
		})
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(replayed) != 2 || replayed[0] != ids[1] || replayed[1] != ids[2] {
		t.Errorf("EventsSince(%d) = %v, want %v", ids[0], replayed, ids[1:])
	}
}

func TestAdvanceWatermarkNeverRegresses(t *testing.T) {
	s := openTestStore(t)
	sub := &types.Subscriber{ID: types.NewID(), OwnerID: types.NewID(), TargetID: types.NewID()}

	err := s.Update(func(txn *Txn) error {
		if err := txn.PutSubscriber(sub); err != nil {
			return err
		}
		if err := txn.AdvanceWatermark(sub.ID, 5); err != nil {
			return err
		}
		return txn.AdvanceWatermark(sub.ID, 2)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	err = s.View(func(txn *Txn) error {
		got, err := txn.GetSubscriber(sub.ID)
		if err != nil {
			return err
		}
		if got.LastAckedEventID != 5 {
			t.Errorf("LastAckedEventID = %d, want 5", got.LastAckedEventID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}
