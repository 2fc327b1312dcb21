package authz

import "github.com/cuemby/strata/pkg/types"

// Kind discriminates the shape of an authorization Context.
type Kind string

const (
	KindPublic         Kind = "Public"
	KindNotRegistered  Kind = "NotRegistered"
	KindUserOnly       Kind = "UserOnly"
	KindSubscriberOwner Kind = "SubscriberOwnerOf"
	KindGlobalAdmin    Kind = "GlobalAdmin"
	KindPermission     Kind = "Permission"
	KindPermissionBatch Kind = "PermissionBatch"
	KindPermissionFork Kind = "PermissionFork"
)

// PermissionCheck is one (minimum level, source resource) requirement.
type PermissionCheck struct {
	MinLevel types.Permission
	Source   types.ID
}

// Context is a request's declared authorization requirement. Exactly
// the fields relevant to Kind are populated.
type Context struct {
	Kind Kind

	SubscriberID types.ID

	Permission PermissionCheck
	Batch      []PermissionCheck
	Fork       [2]PermissionCheck
}

// Public builds a Context that allows any caller, registered or not.
func Public() Context { return Context{Kind: KindPublic} }

// NotRegistered builds a Context that allows any validated OIDC token.
func NotRegistered() Context { return Context{Kind: KindNotRegistered} }

// UserOnly builds a Context that denies service accounts and, for internal
// tokens, requires Personal scope.
func UserOnly() Context { return Context{Kind: KindUserOnly} }

// SubscriberOwnerOf builds a Context requiring the requester to own
// subscriber id.
func SubscriberOwnerOf(id types.ID) Context {
	return Context{Kind: KindSubscriberOwner, SubscriberID: id}
}

// GlobalAdmin builds a Context requiring the requester to be a global
// admin user.
func GlobalAdmin() Context { return Context{Kind: KindGlobalAdmin} }

// RequirePermission builds a Context requiring at least minLevel on source.
func RequirePermission(minLevel types.Permission, source types.ID) Context {
	return Context{Kind: KindPermission, Permission: PermissionCheck{MinLevel: minLevel, Source: source}}
}

// RequireAll builds a Context requiring every check in checks to pass.
func RequireAll(checks ...PermissionCheck) Context {
	return Context{Kind: KindPermissionBatch, Batch: checks}
}

// RequireFork builds a Context requiring both a and b to pass — used when a
// relation touches two subtrees at once.
func RequireFork(a, b PermissionCheck) Context {
	return Context{Kind: KindPermissionFork, Fork: [2]PermissionCheck{a, b}}
}
