package controller

import (
	"context"
	"time"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// AddOidcProvider registers a trusted external OIDC issuer. Only a global
// admin may extend the trusted-issuer set.
type AddOidcProvider struct {
	Requester    *token.Requester
	Name         string
	Audiences    []string
	JWKSEndpoint string
}

func (w *AddOidcProvider) Op() string                 { return "AddOidcProvider" }
func (w *AddOidcProvider) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *AddOidcProvider) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if w.Name == "" || w.JWKSEndpoint == "" {
		return nil, nil, invalidArgument("name and jwks endpoint are required")
	}
	if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	iss := &types.Issuer{Name: w.Name, Type: types.IssuerOIDC, Audiences: w.Audiences, JWKSEndpoint: w.JWKSEndpoint}
	if err := c.Registry.RegisterIssuer(txn, iss); err != nil {
		return nil, nil, internalErr("", err)
	}
	return iss, nil, nil
}

// ActivateUser handles the first-login path: a validated OIDC subject with no existing
// oidc_map entry is turned into a durable User node and bound to that
// subject. Unlike every other Write, there is deliberately no Requester
// here — the caller has a verified OIDC identity but, by definition, no
// Strata principal yet to authorize against.
type ActivateUser struct {
	IssuerName string
	Subject    string
	FirstName  string
	LastName   string
	Email      string
	Now        time.Time
}

func (w *ActivateUser) Op() string                 { return "ActivateUser" }
func (w *ActivateUser) EventKind() types.EventKind { return types.EventUserCreated }

func (w *ActivateUser) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if w.IssuerName == "" || w.Subject == "" {
		return nil, nil, invalidArgument("issuer and subject are required")
	}
	if _, err := txn.GetOidcMapping(w.IssuerName, w.Subject); err == nil {
		return nil, nil, conflict("subject %s at issuer %s is already activated", w.Subject, w.IssuerName)
	}

	id := types.NewID()
	user := &types.User{
		ID:          id,
		FirstName:   w.FirstName,
		LastName:    w.LastName,
		Email:       w.Email,
		OidcMapping: []types.OidcMapping{{IssuerName: w.IssuerName, Subject: w.Subject}},
		Active:      true,
		CreatedAt:   w.Now,
	}
	if err := txn.PutNode(types.NewUserNode(user)); err != nil {
		return nil, nil, err
	}
	idx, _ := txn.InternalIndex(id)
	c.Graph.AddNode(id, idx, types.NodeUser)

	if err := txn.PutOidcMapping(w.IssuerName, w.Subject, id); err != nil {
		return nil, nil, err
	}
	return user, []types.ID{id}, nil
}

// tokenResponse is what CreateToken and IssueDataProxyToken hand back: the
// durable Token node plus the signed JWT bearing it.
type tokenResponse struct {
	Token  *types.Token `json:"token"`
	Signed string       `json:"signed"`
}

// CreateToken mints a new bearer token owned by the requester themselves, scoped
// no more broadly than the requester's own effective permission allows.
type CreateToken struct {
	Requester *token.Requester
	Name      string
	Scope     types.Scope
	ExpiresAt time.Time
	Audience  string
	Now       time.Time
}

func (w *CreateToken) Op() string                 { return "CreateToken" }
func (w *CreateToken) EventKind() types.EventKind { return types.EventUserUpdated }

func (w *CreateToken) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.UserOnly()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	owner := w.Requester.PrincipalID()

	if w.Scope.Kind == types.ScopeResource {
		if err := c.Authz.Authorize(txn, w.Requester, authz.RequirePermission(w.Scope.Level, w.Scope.ResourceID)); err != nil {
			return nil, nil, permissionDenied("token scope exceeds requester's own permission: %v", err)
		}
	}

	tokenID := types.NewID()
	tok := &types.Token{ID: tokenID, OwnerID: owner, Name: w.Name, Scope: w.Scope, ExpiresAt: w.ExpiresAt, CreatedAt: w.Now}
	if err := txn.PutNode(types.NewTokenNode(tok)); err != nil {
		return nil, nil, err
	}
	idx, _ := txn.InternalIndex(tokenID)
	c.Graph.AddNode(tokenID, idx, types.NodeToken)
	if _, err := txn.AddRelation(owner, tokenID, types.RelOwnedByUser); err != nil {
		return nil, nil, err
	}
	if err := c.Graph.AddEdge(owner, tokenID, types.RelOwnedByUser); err != nil {
		return nil, nil, err
	}

	signed, err := c.Tokens.Sign(owner, tokenID, w.Scope, w.ExpiresAt, w.Audience)
	if err != nil {
		return nil, nil, internalErr("", err)
	}
	return tokenResponse{Token: tok, Signed: signed}, []types.ID{owner, tokenID}, nil
}

// CreateServiceAccount creates a non-human principal owned by a Group.
// Membership in a Group's administration is out of pkg/graph's resource
// hierarchy, so this is global-admin-gated rather than permission-checked
// (documented Open Question decision, see DESIGN.md).
type CreateServiceAccount struct {
	Requester *token.Requester
	GroupID   types.ID
	Name      string
	Now       time.Time
}

func (w *CreateServiceAccount) Op() string                 { return "CreateServiceAccount" }
func (w *CreateServiceAccount) EventKind() types.EventKind { return types.EventUserCreated }

func (w *CreateServiceAccount) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if w.Name == "" || w.GroupID == "" {
		return nil, nil, invalidArgument("name and group id are required")
	}
	if err := c.Authz.Authorize(txn, w.Requester, authz.GlobalAdmin()); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	if _, err := txn.GetNode(w.GroupID); err != nil {
		return nil, nil, err
	}

	id := types.NewID()
	sa := &types.ServiceAccount{ID: id, Name: w.Name, GroupID: w.GroupID, CreatedAt: w.Now}
	if err := txn.PutNode(types.NewServiceAccountNode(sa)); err != nil {
		return nil, nil, err
	}
	idx, _ := txn.InternalIndex(id)
	c.Graph.AddNode(id, idx, types.NodeServiceAccount)
	return sa, []types.ID{id}, nil
}

// IssueDataProxyToken mints a resource-scoped token intended for
// presentation to a registered data-proxy component, so the proxy can
// perform byte-level replication on the caller's behalf without the caller
// handing over its own Personal-scope token. The requester must hold at
// least the requested scope level on the resource themselves.
type IssueDataProxyToken struct {
	Requester *token.Requester
	Component types.ID
	Resource  types.ID
	Level     types.Permission
	ExpiresAt time.Time
	Now       time.Time
}

func (w *IssueDataProxyToken) Op() string                 { return "IssueDataProxyToken" }
func (w *IssueDataProxyToken) EventKind() types.EventKind { return types.EventUserUpdated }

func (w *IssueDataProxyToken) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.RequirePermission(w.Level, w.Resource)); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	componentNode, err := txn.GetNode(w.Component)
	if err != nil {
		return nil, nil, err
	}
	if componentNode.Variant != types.NodeComponent {
		return nil, nil, invalidArgument("%s is not a Component", w.Component)
	}

	owner := w.Requester.PrincipalID()
	scope := types.Scope{Kind: types.ScopeResource, ResourceID: w.Resource, Level: w.Level}
	tokenID := types.NewID()
	tok := &types.Token{ID: tokenID, OwnerID: owner, Name: "data-proxy:" + w.Component.String(), Scope: scope, ExpiresAt: w.ExpiresAt, CreatedAt: w.Now}
	if err := txn.PutNode(types.NewTokenNode(tok)); err != nil {
		return nil, nil, err
	}
	idx, _ := txn.InternalIndex(tokenID)
	c.Graph.AddNode(tokenID, idx, types.NodeToken)
	if _, err := txn.AddRelation(owner, tokenID, types.RelOwnedByUser); err != nil {
		return nil, nil, err
	}
	if err := c.Graph.AddEdge(owner, tokenID, types.RelOwnedByUser); err != nil {
		return nil, nil, err
	}

	signed, err := c.Tokens.Sign(owner, tokenID, scope, w.ExpiresAt, w.Component.String())
	if err != nil {
		return nil, nil, internalErr("", err)
	}
	return tokenResponse{Token: tok, Signed: signed}, []types.ID{owner, tokenID}, nil
}
