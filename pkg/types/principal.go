package types

import "time"

// OidcMapping binds a User to a subject at a trusted OIDC issuer.
type OidcMapping struct {
	IssuerName string `json:"issuer_name"`
	Subject    string `json:"subject"`
}

// User is a human principal.
type User struct {
	ID          ID            `json:"id"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	Email       string        `json:"email"`
	GlobalAdmin bool          `json:"global_admin"`
	OidcMapping []OidcMapping `json:"oidc_mapping"`
	Active      bool          `json:"active"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ServiceAccount is a non-human principal, always owned by a Group.
type ServiceAccount struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	GroupID   ID        `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ScopeKind discriminates a Token's Scope.
type ScopeKind string

const (
	// ScopePersonal inherits every permission the owning principal holds.
	ScopePersonal ScopeKind = "Personal"
	// ScopeResource caps effective permission at Level on the subtree
	// rooted at ResourceID.
	ScopeResource ScopeKind = "Resource"
)

// Scope is the cap a Token places on its bearer's effective permission.
type Scope struct {
	Kind       ScopeKind  `json:"kind"`
	ResourceID ID         `json:"resource_id,omitempty"`
	Level      Permission `json:"level,omitempty"`
}

// Token is a child node of a User or ServiceAccount.
type Token struct {
	ID        ID        `json:"id"`
	OwnerID   ID        `json:"owner_id"`
	Name      string    `json:"name"`
	Scope     Scope     `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is no longer usable as of now.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Group is an administrative container of Users and ServiceAccounts.
type Group struct {
	ID          ID        `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Realm is an administrative container owning an admin Group, a set of
// member Groups, and a set of Projects.
type Realm struct {
	ID          ID        `json:"id"`
	Tag         string    `json:"tag"` // region
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AdminGroup  ID        `json:"admin_group_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ComponentVariant discriminates a Component.
type ComponentVariant string

const (
	ComponentDataProxy ComponentVariant = "DataProxy"
	ComponentCompute   ComponentVariant = "Compute"
)

// HostConfig is one network endpoint a Component advertises.
type HostConfig struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Component is an external execution endpoint (data-proxy or compute) that a
// Realm can use.
type Component struct {
	ID        ID               `json:"id"`
	Name      string           `json:"name"`
	Variant   ComponentVariant `json:"variant"`
	Hosts     []HostConfig     `json:"hosts"`
	PublicKey string           `json:"public_key"`
	CreatedAt time.Time        `json:"created_at"`
}
