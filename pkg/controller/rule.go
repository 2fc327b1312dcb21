package controller

import (
	"context"
	"time"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/rules"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// CreateRule parses expression once to reject a malformed rule up front
//; only the source string
// is ever persisted.
type CreateRule struct {
	Requester   *token.Requester
	Expression  string
	Description string
	Public      bool
	Now         time.Time
}

func (w *CreateRule) Op() string                 { return "CreateRule" }
func (w *CreateRule) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *CreateRule) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.UserOnly()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	if _, err := rules.Parse(w.Expression); err != nil {
		return nil, nil, invalidArgument("rule expression: %v", err)
	}
	rule := &types.Rule{
		ID:          types.NewID(),
		OwnerID:     w.Requester.PrincipalID(),
		Expression:  w.Expression,
		Description: w.Description,
		Public:      w.Public,
		CreatedAt:   w.Now,
	}
	if err := txn.PutRule(rule); err != nil {
		return nil, nil, err
	}
	return rule, nil, nil
}

// UpdateRule replaces a rule's expression and description, re-validating
// the new expression the same way CreateRule does. Existing bindings keep
// pointing at the same rule id, so they immediately evaluate under the new
// expression.
type UpdateRule struct {
	Requester   *token.Requester
	ID          types.ID
	Expression  string
	Description string
}

func (w *UpdateRule) Op() string                 { return "UpdateRule" }
func (w *UpdateRule) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *UpdateRule) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	rule, err := txn.GetRule(w.ID)
	if err != nil {
		return nil, nil, err
	}
	if rule.OwnerID != w.Requester.PrincipalID() {
		if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
			return nil, nil, permissionDenied("only the rule's owner or a global admin may update it")
		}
	}
	if _, err := rules.Parse(w.Expression); err != nil {
		return nil, nil, invalidArgument("rule expression: %v", err)
	}
	rule.Expression = w.Expression
	rule.Description = w.Description
	if err := txn.PutRule(rule); err != nil {
		return nil, nil, err
	}
	return rule, nil, nil
}

// DeleteRule removes a rule. Bindings referencing it are left for the
// caller to remove first via DeleteRuleBinding — deleting a rule out from
// under a live binding would make CheckBindings fail closed on the next
// mutation of every object it's bound to, so the controller does not do it
// implicitly.
type DeleteRule struct {
	Requester *token.Requester
	ID        types.ID
}

func (w *DeleteRule) Op() string                 { return "DeleteRule" }
func (w *DeleteRule) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *DeleteRule) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	rule, err := txn.GetRule(w.ID)
	if err != nil {
		return nil, nil, err
	}
	if rule.OwnerID != w.Requester.PrincipalID() {
		if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
			return nil, nil, permissionDenied("only the rule's owner or a global admin may delete it")
		}
	}
	if err := txn.DeleteRule(w.ID); err != nil {
		return nil, nil, err
	}
	return struct {
		Deleted types.ID `json:"deleted"`
	}{w.ID}, nil, nil
}

// CreateRuleBinding attaches a rule to an object the requester holds Admin
// on, optionally cascading the binding onto every present and future
// descendant.
type CreateRuleBinding struct {
	Requester *token.Requester
	RuleID    types.ID
	ObjectID  types.ID
	Cascading bool
	Now       time.Time
}

func (w *CreateRuleBinding) Op() string                 { return "CreateRuleBinding" }
func (w *CreateRuleBinding) EventKind() types.EventKind { return types.EventResourceUpdated }

func (w *CreateRuleBinding) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.RequirePermission(types.PermissionAdmin, w.ObjectID)); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	binding, err := rules.CreateBinding(txn, w.RuleID, w.ObjectID, w.ObjectID, w.Cascading, w.Now)
	if err != nil {
		return nil, nil, err
	}
	if w.Cascading {
		for _, descendant := range c.Graph.Subtree(w.ObjectID) {
			if descendant == w.ObjectID {
				continue
			}
			if _, err := rules.CreateBinding(txn, w.RuleID, w.ObjectID, descendant, true, w.Now); err != nil {
				return nil, nil, err
			}
		}
	}
	return binding, []types.ID{w.ObjectID}, nil
}

// DeleteRuleBinding removes one binding by id. It does not cascade: a
// cascading binding materialized bindings individually onto every
// descendant at creation time, so each is removed independently.
type DeleteRuleBinding struct {
	Requester *token.Requester
	ID        types.ID
}

func (w *DeleteRuleBinding) Op() string                 { return "DeleteRuleBinding" }
func (w *DeleteRuleBinding) EventKind() types.EventKind { return types.EventResourceUpdated }

func (w *DeleteRuleBinding) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	binding, err := txn.GetRuleBinding(w.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Authz.Authorize(txn, w.Requester, authz.RequirePermission(types.PermissionAdmin, binding.ObjectID)); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	if err := txn.DeleteRuleBinding(w.ID); err != nil {
		return nil, nil, err
	}
	return struct {
		Deleted types.ID `json:"deleted"`
	}{w.ID}, []types.ID{binding.ObjectID}, nil
}
