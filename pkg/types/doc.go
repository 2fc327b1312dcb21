/*
Package types defines the shared data model for Strata's metadata graph:
resources, principals, realms/groups, components, relations, rules and
events. Every other package operates on these types through pkg/storage and
pkg/graph rather than defining its own copies.

# Node variants

A Node is the graph's unit of storage. Its Variant tag selects which concrete
payload (Resource, User, ServiceAccount, Token, Group, Realm, Component) is
meaningful; callers type-assert after reading a Node back from the store.

# Relation variants

Relations are typed edges keyed by a dense, monotonically assigned u32
index. The first 14 indices are seeded once at store initialization and are
part of the on-disk format (see RelationInfo and the Permission ordering
below) — they are never renumbered. Indices 2..6 double as a total order of
permission strength (None < Read < Append < Write < Admin); the permission
algorithm in pkg/graph compares them directly as integers.
*/
package types
