package token

import "github.com/cuemby/strata/pkg/types"

// AuthMethod records how a Requester's identity was established.
type AuthMethod string

const (
	MethodInternal AuthMethod = "Internal"
	MethodOIDC     AuthMethod = "OIDC"
)

// Requester is a validated principal bound to one request. It
// is always a User or a ServiceAccount, optionally impersonated by a proxy
// component, and optionally scoped by the bearer token it arrived on.
type Requester struct {
	UserID           types.ID
	ServiceAccountID types.ID
	Method           AuthMethod
	TokenIndex       string
	ImpersonatedBy   types.ID
	Scope            *types.Scope
}

// IsServiceAccount reports whether this requester authenticated as a
// service account rather than a human user.
func (r Requester) IsServiceAccount() bool { return !r.ServiceAccountID.Empty() }

// PrincipalID returns whichever of UserID/ServiceAccountID is populated —
// the id the graph's permission traversal starts from.
func (r Requester) PrincipalID() types.ID {
	if r.IsServiceAccount() {
		return r.ServiceAccountID
	}
	return r.UserID
}
