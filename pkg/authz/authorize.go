package authz

import (
	"fmt"

	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// Authorizer decides allow/deny against the current graph. It holds no
// per-request state and caches nothing.
type Authorizer struct {
	graph *graph.Graph
}

// New builds an Authorizer over g.
func New(g *graph.Graph) *Authorizer {
	return &Authorizer{graph: g}
}

// Authorize evaluates ctx for requester against the data txn currently
// sees. A nil return means allow; any error means deny, and the error
// message explains why.
func (a *Authorizer) Authorize(txn *storage.Txn, requester *token.Requester, ctx Context) error {
	err := a.authorize(txn, requester, ctx)
	if err != nil {
		metrics.AuthzDecisionsTotal.WithLabelValues(string(ctx.Kind), "deny").Inc()
	} else {
		metrics.AuthzDecisionsTotal.WithLabelValues(string(ctx.Kind), "allow").Inc()
	}
	return err
}

func (a *Authorizer) authorize(txn *storage.Txn, requester *token.Requester, ctx Context) error {
	switch ctx.Kind {
	case KindPublic:
		return nil

	case KindNotRegistered:
		if requester == nil {
			return fmt.Errorf("unauthorized: no validated requester")
		}
		if requester.Method != token.MethodOIDC {
			return fmt.Errorf("unauthorized: requires an OIDC token")
		}
		return nil

	case KindUserOnly:
		if requester == nil {
			return fmt.Errorf("unauthorized: no validated requester")
		}
		if requester.IsServiceAccount() {
			return fmt.Errorf("unauthorized: service accounts may not call this operation")
		}
		if requester.Method == token.MethodInternal && requester.Scope != nil && requester.Scope.Kind != types.ScopePersonal {
			return fmt.Errorf("unauthorized: token must carry Personal scope")
		}
		return nil

	case KindSubscriberOwner:
		if requester == nil {
			return fmt.Errorf("unauthorized: no validated requester")
		}
		sub, err := txn.GetSubscriber(ctx.SubscriberID)
		if err != nil {
			return fmt.Errorf("unauthorized: %w", err)
		}
		if sub.OwnerID != requester.PrincipalID() {
			return fmt.Errorf("unauthorized: requester does not own subscriber %s", ctx.SubscriberID)
		}
		return nil

	case KindGlobalAdmin:
		isAdmin, err := a.isGlobalAdmin(txn, requester)
		if err != nil {
			return err
		}
		if !isAdmin {
			return fmt.Errorf("unauthorized: requires global admin")
		}
		return nil

	case KindPermission:
		return a.checkPermission(txn, requester, ctx.Permission)

	case KindPermissionBatch:
		for _, check := range ctx.Batch {
			if err := a.checkPermission(txn, requester, check); err != nil {
				return err
			}
		}
		return nil

	case KindPermissionFork:
		if err := a.checkPermission(txn, requester, ctx.Fork[0]); err != nil {
			return err
		}
		return a.checkPermission(txn, requester, ctx.Fork[1])

	default:
		return fmt.Errorf("unauthorized: unknown context kind %q", ctx.Kind)
	}
}

func (a *Authorizer) isGlobalAdmin(txn *storage.Txn, requester *token.Requester) (bool, error) {
	if requester == nil || requester.IsServiceAccount() {
		return false, nil
	}
	node, err := txn.GetNode(requester.UserID)
	if err != nil {
		return false, fmt.Errorf("unauthorized: %w", err)
	}
	user, err := node.AsUser()
	if err != nil {
		return false, fmt.Errorf("unauthorized: %w", err)
	}
	return user.GlobalAdmin, nil
}

func (a *Authorizer) checkPermission(txn *storage.Txn, requester *token.Requester, check PermissionCheck) error {
	if requester == nil {
		return fmt.Errorf("unauthorized: no validated requester")
	}
	isAdmin, err := a.isGlobalAdmin(txn, requester)
	if err != nil {
		return err
	}

	level := a.graph.GetPermissions(check.Source, requester.PrincipalID(), isAdmin)
	if level < check.MinLevel {
		return fmt.Errorf("unauthorized: have %s on %s, need %s", level, check.Source, check.MinLevel)
	}

	if requester.Method == token.MethodInternal && requester.Scope != nil && requester.Scope.Kind == types.ScopeResource {
		if requester.Scope.Level < check.MinLevel {
			return fmt.Errorf("unauthorized: token scope caps permission at %s", requester.Scope.Level)
		}
		inSubtree := false
		for _, id := range a.graph.Subtree(requester.Scope.ResourceID) {
			if id == check.Source {
				inSubtree = true
				break
			}
		}
		if !inSubtree {
			return fmt.Errorf("unauthorized: token scope restricted to subtree of %s", requester.Scope.ResourceID)
		}
	}

	return nil
}
