package types

// Permission is the strength of an effective permission edge. The numeric
// values are part of the on-disk format (they equal the corresponding
// RelationInfo index) and are compared directly — never renumber them.
type Permission uint32

const (
	PermissionNone   Permission = 2
	PermissionRead   Permission = 3
	PermissionAppend Permission = 4
	PermissionWrite  Permission = 5
	PermissionAdmin  Permission = 6
)

// String implements fmt.Stringer.
func (p Permission) String() string {
	switch p {
	case PermissionNone:
		return "None"
	case PermissionRead:
		return "Read"
	case PermissionAppend:
		return "Append"
	case PermissionWrite:
		return "Write"
	case PermissionAdmin:
		return "Admin"
	default:
		return "Unknown"
	}
}

// RelationVariant is the dense, monotonically assigned index of a relation
// type. 0..13 are seeded once at store initialization and are part of the
// on-disk format.
type RelationVariant uint32

const (
	RelHasPart                 RelationVariant = 0
	RelOwnsProject              RelationVariant = 1
	RelPermissionNone           RelationVariant = 2
	RelPermissionRead           RelationVariant = 3
	RelPermissionAppend         RelationVariant = 4
	RelPermissionWrite          RelationVariant = 5
	RelPermissionAdmin          RelationVariant = 6
	RelSharesPermission         RelationVariant = 7
	RelOwnedByUser              RelationVariant = 8
	RelGroupPartOfRealm         RelationVariant = 9
	RelGroupAdministratesRealm RelationVariant = 10
	RelRealmUsesComponent       RelationVariant = 11
	RelProjectPartOfRealm       RelationVariant = 12
	RelDefaultOf                RelationVariant = 13

	// SeededRelationCount is the number of relation variants bootstrapped at
	// store initialization.
	SeededRelationCount = 14
)

// PermissionVariant reports the Permission level a seeded permission
// relation variant encodes, and whether v is a permission variant at all.
func PermissionVariant(v RelationVariant) (Permission, bool) {
	if v >= RelationVariant(RelPermissionNone) && v <= RelationVariant(RelPermissionAdmin) {
		return Permission(v), true
	}
	return 0, false
}

// RelationInfo describes one edge variant: its forward/backward display
// names and whether it is reserved for internal use (never exposed as a
// user-creatable relation in CreateRelation).
type RelationInfo struct {
	Index    RelationVariant `json:"index"`
	Forward  string          `json:"forward"`
	Backward string          `json:"backward"`
	Internal bool            `json:"internal"`
}

// SeededRelationInfos returns the 14 built-in relation variants in index
// order, ready to bootstrap an empty relation_info table.
func SeededRelationInfos() []RelationInfo {
	return []RelationInfo{
		{RelHasPart, "HasPart", "PartOf", false},
		{RelOwnsProject, "OwnsProject", "ProjectOwnedBy", false},
		{RelPermissionNone, "PermissionNone", "PermissionNone", true},
		{RelPermissionRead, "PermissionRead", "PermissionRead", true},
		{RelPermissionAppend, "PermissionAppend", "PermissionAppend", true},
		{RelPermissionWrite, "PermissionWrite", "PermissionWrite", true},
		{RelPermissionAdmin, "PermissionAdmin", "PermissionAdmin", true},
		{RelSharesPermission, "SharesPermissionTo", "PermissionSharedFrom", true},
		{RelOwnedByUser, "OwnedByUser", "UserOwnsToken", true},
		{RelGroupPartOfRealm, "GroupPartOfRealm", "RealmHasGroup", true},
		{RelGroupAdministratesRealm, "GroupAdministratesRealm", "RealmAdministratedBy", true},
		{RelRealmUsesComponent, "RealmUsesComponent", "ComponentUsedByRealm", true},
		{RelProjectPartOfRealm, "ProjectPartOfRealm", "RealmHasProject", true},
		{RelDefaultOf, "DefaultOf", "HasDefault", true},
	}
}

// Relation is a typed edge (source, target, variant). The edge set for a
// given (source, target) pair is a multiset keyed by variant — the same pair
// of nodes may be connected by several distinct relation types at once.
type Relation struct {
	Sequence uint32          `json:"sequence"`
	Source   ID              `json:"source"`
	Target   ID              `json:"target"`
	Variant  RelationVariant `json:"variant"`
}

// Direction selects which end of a Relation a traversal pivots on.
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
)
