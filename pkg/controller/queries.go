package controller

import (
	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// Reads need neither tx-id dedup nor an emitted event, so they are plain
// *Controller methods rather than Writes: each opens its own read-only
// storage.Txn and returns straight away.

// GetResource fetches one resource, requiring the requester hold at least
// Read on it — unless the resource is Public, in which case it is served
// to any caller, validated requester or not.
func (c *Controller) GetResource(requester *token.Requester, id types.ID) (*types.Resource, error) {
	var resource *types.Resource
	err := c.Store.View(func(txn *storage.Txn) error {
		node, err := txn.GetNode(id)
		if err != nil {
			return err
		}
		r, err := node.AsResource()
		if err != nil {
			return invalidArgument("%v", err)
		}
		if err := c.Authz.Authorize(txn, requester, readContext(r)); err != nil {
			return permissionDenied("%v", err)
		}
		resource = r
		return nil
	})
	if err != nil {
		return nil, asControllerErr(err)
	}
	return resource, nil
}

// readContext returns authz.Public() for a Public resource and a Read
// permission check otherwise, so a request against a Public resource never
// needs a presented token.
func readContext(r *types.Resource) authz.Context {
	if r.Visibility == types.VisibilityPublic {
		return authz.Public()
	}
	return authz.RequirePermission(types.PermissionRead, r.ID)
}

// GetResources fetches a batch by id, silently skipping any the requester
// cannot Read rather than failing the whole call — callers that need to
// know which ids were dropped should fetch individually.
func (c *Controller) GetResources(requester *token.Requester, ids []types.ID) ([]*types.Resource, error) {
	var out []*types.Resource
	err := c.Store.View(func(txn *storage.Txn) error {
		for _, id := range ids {
			if err := c.Authz.Authorize(txn, requester, authz.RequirePermission(types.PermissionRead, id)); err != nil {
				continue
			}
			node, err := txn.GetNode(id)
			if err != nil {
				continue
			}
			r, err := node.AsResource()
			if err != nil {
				continue
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, asControllerErr(err)
	}
	return out, nil
}

// GetRelations lists the edges touching node on the side given by
// direction, requiring Read on node itself unless node is a Public
// resource. nextOffset is nil once the page reaches the end of the result
// set, matching the pagination contract of every other paginated read.
func (c *Controller) GetRelations(requester *token.Requester, node types.ID, variants []types.RelationVariant, direction types.Direction, offset, limit int) (rels []types.Relation, nextOffset *int, err error) {
	viewErr := c.Store.View(func(txn *storage.Txn) error {
		authzCtx := authz.RequirePermission(types.PermissionRead, node)
		if n, nerr := txn.GetNode(node); nerr == nil {
			if r, rerr := n.AsResource(); rerr == nil {
				authzCtx = readContext(r)
			}
		}
		if err := c.Authz.Authorize(txn, requester, authzCtx); err != nil {
			return permissionDenied("%v", err)
		}
		r, n, gerr := txn.GetRelations(storage.RelationFilter{Node: node, Direction: direction, Variants: variants, Offset: offset, Limit: limit})
		if gerr != nil {
			return gerr
		}
		rels = r
		if n > 0 {
			nextOffset = &n
		}
		return nil
	})
	if viewErr != nil {
		return nil, nil, asControllerErr(viewErr)
	}
	return rels, nextOffset, nil
}

// GetRelationInfos lists every registered relation variant, seeded and
// user-defined alike. No resource-level permission applies; the relation
// vocabulary itself is not access-controlled.
func (c *Controller) GetRelationInfos() ([]types.RelationInfo, error) {
	var infos []types.RelationInfo
	err := c.Store.View(func(txn *storage.Txn) error {
		all, err := txn.AllRelationInfos()
		if err != nil {
			return err
		}
		infos = all
		return nil
	})
	if err != nil {
		return nil, asControllerErr(err)
	}
	return infos, nil
}

// GetRealm fetches a Realm by id. Realm administration sits outside the
// resource hierarchy pkg/graph permission-checks, so this requires only
// that the requester be an authenticated user (UserOnly), a lower bar
// than the GlobalAdmin gating applied to CreateRealm.
func (c *Controller) GetRealm(requester *token.Requester, id types.ID) (*types.Realm, error) {
	var realm *types.Realm
	err := c.Store.View(func(txn *storage.Txn) error {
		if err := c.Authz.Authorize(txn, requester, authz.UserOnly()); err != nil {
			return permissionDenied("%v", err)
		}
		node, err := txn.GetNode(id)
		if err != nil {
			return err
		}
		if node.Variant != types.NodeRealm || node.Realm == nil {
			return invalidArgument("%s is not a Realm", id)
		}
		realm = node.Realm
		return nil
	})
	if err != nil {
		return nil, asControllerErr(err)
	}
	return realm, nil
}

// GetGroup fetches a Group by id.
func (c *Controller) GetGroup(requester *token.Requester, id types.ID) (*types.Group, error) {
	var group *types.Group
	err := c.Store.View(func(txn *storage.Txn) error {
		if err := c.Authz.Authorize(txn, requester, authz.UserOnly()); err != nil {
			return permissionDenied("%v", err)
		}
		node, err := txn.GetNode(id)
		if err != nil {
			return err
		}
		if node.Variant != types.NodeGroup || node.Group == nil {
			return invalidArgument("%s is not a Group", id)
		}
		group = node.Group
		return nil
	})
	if err != nil {
		return nil, asControllerErr(err)
	}
	return group, nil
}

// asControllerErr normalizes an error surfaced from inside a View closure
// to *Error, the same way Controller.Transaction does for writes.
func asControllerErr(err error) error {
	if cerr, ok := err.(*Error); ok {
		return cerr
	}
	return translateStorageErr("", err)
}
