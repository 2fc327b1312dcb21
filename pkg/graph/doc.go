/*
Package graph is the in-memory, typed directed multigraph that mirrors the
relation set persisted by pkg/storage. It is a derived projection,
never a second source of truth: it is rebuilt from the store on startup via
Load, and every mutation happens inside the same write transaction that
commits the underlying relations.

Nodes are addressed by the store's dense uint32 internal index rather than
their external ULID, the same way the store's own relations table is keyed,
so traversal never pays a map-of-strings cost in the hot path.
*/
package graph
