package controller

import (
	"context"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// CreateRelation adds a user-creatable edge between two resources the
// requester holds Write on. HasPart edges are additionally rejected if
// they would close a cycle.
type CreateRelation struct {
	Requester *token.Requester
	Source    types.ID
	Target    types.ID
	Variant   types.RelationVariant
}

func (w *CreateRelation) Op() string                 { return "CreateRelation" }
func (w *CreateRelation) EventKind() types.EventKind { return types.EventResourceUpdated }

func (w *CreateRelation) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	info, err := txn.RelationInfoByIndex(w.Variant)
	if err != nil {
		return nil, nil, invalidArgument("unknown relation variant %d", w.Variant)
	}
	if info.Internal {
		return nil, nil, invalidArgument("relation variant %s is reserved for internal use", info.Forward)
	}

	check := authz.RequireFork(
		authz.PermissionCheck{MinLevel: types.PermissionWrite, Source: w.Source},
		authz.PermissionCheck{MinLevel: types.PermissionWrite, Source: w.Target},
	)
	if err := c.Authz.Authorize(txn, w.Requester, check); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}

	if w.Variant == types.RelHasPart && c.Graph.HasCycle(w.Source, w.Target) {
		return nil, nil, failedPrecondition("", "relation %s -> %s would create a HasPart cycle", w.Source, w.Target)
	}

	rel, err := txn.AddRelation(w.Source, w.Target, w.Variant)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Graph.AddEdge(w.Source, w.Target, w.Variant); err != nil {
		return nil, nil, err
	}
	return rel, []types.ID{w.Source, w.Target}, nil
}

// CreateRelationVariant registers a new, globally-visible relation type.
// Only a global admin may extend the relation vocabulary.
type CreateRelationVariant struct {
	Requester *token.Requester
	Forward   string
	Backward  string
}

func (w *CreateRelationVariant) Op() string                 { return "CreateRelationVariant" }
func (w *CreateRelationVariant) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *CreateRelationVariant) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if w.Forward == "" || w.Backward == "" {
		return nil, nil, invalidArgument("forward and backward names are required")
	}
	if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	variant, err := txn.CreateRelationVariant(w.Forward, w.Backward)
	if err != nil {
		return nil, nil, err
	}
	return types.RelationInfo{Index: variant, Forward: w.Forward, Backward: w.Backward}, nil, nil
}
