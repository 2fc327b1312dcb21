package notify

import (
	"time"

	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

// resolveResource adapts storage's GetNode into the (types.ID) -> *Resource
// lookup Subject needs, erroring if the node isn't a Resource.
func resolveResource(txn *storage.Txn) func(types.ID) (*types.Resource, error) {
	return func(id types.ID) (*types.Resource, error) {
		n, err := txn.GetNode(id)
		if err != nil {
			return nil, err
		}
		return n.AsResource()
	}
}

// Register persists kind as part of the caller's in-flight Txn — it must be
// called before that Txn commits, so the event row lands atomically with the
// mutation it describes. It only records the event; broker delivery is a
// separate step (see EmitAfterCommit) that the caller must not run until
// its Txn has actually committed.
func Register(txn *storage.Txn, kind types.EventKind, touched []types.ID, now time.Time) (*types.Event, error) {
	checksum, err := Checksum(kind, touched)
	if err != nil {
		return nil, err
	}
	return txn.RegisterEvent(kind, touched, checksum, now)
}

// EmitAfterCommit publishes ev to the broker, and for EventResourceSnapshotted
// additionally synthesizes an EventResourceUpdated for every descendant of
// the snapshotted resource. Callers must only invoke this after the Txn that
// registered ev has successfully committed — txn here is expected to be a
// fresh transaction opened on the post-commit state purely to resolve
// subjects, not the transaction the mutation ran in. Calling it before
// commit risks a subscriber seeing an event for a write that a later commit
// failure then rolls back, since a broker publish cannot itself be undone.
func EmitAfterCommit(b *Broker, txn *storage.Txn, g *graph.Graph, ev *types.Event) {
	resolve := resolveResource(txn)

	for _, id := range ev.Touched {
		subject, err := Subject(g, resolve, id)
		if err != nil {
			continue
		}
		b.Publish(&Notification{Event: ev, Subject: subject})
	}

	if ev.Kind != types.EventResourceSnapshotted {
		return
	}
	for _, root := range ev.Touched {
		for _, descendant := range g.Subtree(root) {
			if descendant == root {
				continue
			}
			subject, err := Subject(g, resolve, descendant)
			if err != nil {
				continue
			}
			b.Publish(&Notification{
				Event: &types.Event{
					ID:        ev.ID,
					Kind:      types.EventResourceUpdated,
					Touched:   []types.ID{descendant},
					Checksum:  ev.Checksum,
					CreatedAt: ev.CreatedAt,
				},
				Subject: subject,
			})
		}
	}
}
