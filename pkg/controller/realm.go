package controller

import (
	"context"
	"time"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// CreateGroup creates a bare administrative container. A Group is not
// useful on its own — it gains meaning once it administrates or joins a
// Realm via AddGroupToRealm.
type CreateGroup struct {
	Requester   *token.Requester
	Name        string
	Description string
	Now         time.Time
}

func (w *CreateGroup) Op() string                 { return "CreateGroup" }
func (w *CreateGroup) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *CreateGroup) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if w.Name == "" {
		return nil, nil, invalidArgument("group name is required")
	}
	if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	id := types.NewID()
	group := &types.Group{ID: id, Name: w.Name, Description: w.Description, CreatedAt: w.Now}
	if err := txn.PutNode(types.NewGroupNode(group)); err != nil {
		return nil, nil, err
	}
	idx, _ := txn.InternalIndex(id)
	c.Graph.AddNode(id, idx, types.NodeGroup)
	return group, nil, nil
}

// CreateRealm creates a Realm together with the admin Group that
// administrates it, bound by a GroupAdministratesRealm edge. A Realm is
// unusable without an administrating Group, so the admin Group is created
// alongside it rather than requiring a second round trip.
type CreateRealm struct {
	Requester      *token.Requester
	Tag            string
	Name           string
	Description    string
	AdminGroupName string
	Now            time.Time
}

func (w *CreateRealm) Op() string                 { return "CreateRealm" }
func (w *CreateRealm) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *CreateRealm) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if w.Tag == "" || w.Name == "" || w.AdminGroupName == "" {
		return nil, nil, invalidArgument("tag, name and admin group name are required")
	}
	if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}

	groupID := types.NewID()
	group := &types.Group{ID: groupID, Name: w.AdminGroupName, CreatedAt: w.Now}
	if err := txn.PutNode(types.NewGroupNode(group)); err != nil {
		return nil, nil, err
	}
	idx, _ := txn.InternalIndex(groupID)
	c.Graph.AddNode(groupID, idx, types.NodeGroup)

	realmID := types.NewID()
	realm := &types.Realm{ID: realmID, Tag: w.Tag, Name: w.Name, Description: w.Description, AdminGroup: groupID, CreatedAt: w.Now}
	if err := txn.PutNode(types.NewRealmNode(realm)); err != nil {
		return nil, nil, err
	}
	idx, _ = txn.InternalIndex(realmID)
	c.Graph.AddNode(realmID, idx, types.NodeRealm)

	if _, err := txn.AddRelation(groupID, realmID, types.RelGroupAdministratesRealm); err != nil {
		return nil, nil, err
	}
	if err := c.Graph.AddEdge(groupID, realmID, types.RelGroupAdministratesRealm); err != nil {
		return nil, nil, err
	}
	return realm, nil, nil
}

// AddGroupToRealm adds an existing member Group to a Realm via
// GroupPartOfRealm — distinct from the administrating Group bound at
// CreateRealm time.
type AddGroupToRealm struct {
	Requester *token.Requester
	RealmID   types.ID
	GroupID   types.ID
}

func (w *AddGroupToRealm) Op() string                 { return "AddGroupToRealm" }
func (w *AddGroupToRealm) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *AddGroupToRealm) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	if _, err := txn.GetNode(w.RealmID); err != nil {
		return nil, nil, err
	}
	if _, err := txn.GetNode(w.GroupID); err != nil {
		return nil, nil, err
	}
	rel, err := txn.AddRelation(w.GroupID, w.RealmID, types.RelGroupPartOfRealm)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Graph.AddEdge(w.GroupID, w.RealmID, types.RelGroupPartOfRealm); err != nil {
		return nil, nil, err
	}
	return rel, nil, nil
}
