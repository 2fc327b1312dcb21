package controller

import (
	"context"
	"time"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// snapshotSubtree marks rootID and every descendant reached by HasPart
// Snapshot=true, making IsMutable false for all of them in one pass.
func snapshotSubtree(txn *storage.Txn, c *Controller, rootID types.ID, now time.Time) (*types.Resource, error) {
	var root *types.Resource
	for _, id := range c.Graph.Subtree(rootID) {
		node, err := txn.GetNode(id)
		if err != nil {
			return nil, err
		}
		resource, err := node.AsResource()
		if err != nil {
			continue
		}
		resource.Snapshot = true
		resource.LastModified = now
		if err := txn.UpdateNode(types.NewResourceNode(resource)); err != nil {
			return nil, err
		}
		if id == rootID {
			root = resource
		}
	}
	if root == nil {
		return nil, notFound("resource %s", rootID)
	}
	return root, nil
}

// SnapshotCollection freezes a Collection and every descendant Dataset and
// Object beneath it. The resulting EventResourceSnapshotted carries just
// the collection's id; pkg/notify synthesizes the per-descendant Updated
// events from it.
type SnapshotCollection struct {
	Requester *token.Requester
	ID        types.ID
	Now       time.Time
}

func (w *SnapshotCollection) Op() string                 { return "SnapshotCollection" }
func (w *SnapshotCollection) EventKind() types.EventKind { return types.EventResourceSnapshotted }

func (w *SnapshotCollection) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.RequirePermission(types.PermissionAdmin, w.ID)); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	node, err := txn.GetNode(w.ID)
	if err != nil {
		return nil, nil, err
	}
	resource, err := node.AsResource()
	if err != nil {
		return nil, nil, invalidArgument("%v", err)
	}
	if resource.Variant != types.VariantCollection {
		return nil, nil, invalidArgument("SnapshotCollection requires a Collection, got %s", resource.Variant)
	}
	root, err := snapshotSubtree(txn, c, w.ID, w.Now)
	if err != nil {
		return nil, nil, err
	}
	return root, []types.ID{w.ID}, nil
}

// SnapshotDataset freezes a Dataset and every descendant Object beneath it.
type SnapshotDataset struct {
	Requester *token.Requester
	ID        types.ID
	Now       time.Time
}

func (w *SnapshotDataset) Op() string                 { return "SnapshotDataset" }
func (w *SnapshotDataset) EventKind() types.EventKind { return types.EventResourceSnapshotted }

func (w *SnapshotDataset) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.RequirePermission(types.PermissionAdmin, w.ID)); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	node, err := txn.GetNode(w.ID)
	if err != nil {
		return nil, nil, err
	}
	resource, err := node.AsResource()
	if err != nil {
		return nil, nil, invalidArgument("%v", err)
	}
	if resource.Variant != types.VariantDataset {
		return nil, nil, invalidArgument("SnapshotDataset requires a Dataset, got %s", resource.Variant)
	}
	root, err := snapshotSubtree(txn, c, w.ID, w.Now)
	if err != nil {
		return nil, nil, err
	}
	return root, []types.ID{w.ID}, nil
}
