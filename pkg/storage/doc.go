/*
Package storage is the transactional persistence layer for Strata: nodes,
relations, relation-type registry, issuers, verification keys, the event
log, subscribers and a 25-field index, all under one bbolt environment.

# Layout

One bbolt bucket per table, named exactly as in the design:

	nodes          id -> node (JSON)
	relations      big-endian u32 sequence -> (source, target, variant)
	relation_info  big-endian u32 variant -> info
	issuers        name -> issuer
	pubkeys        serial -> (pem, endpoint id)
	events         big-endian u64 event id -> touched ids
	subscribers    id -> subscriber
	oidc_map       "issuer\x00subject" -> user id
	field_index    one nested bucket per field (25), "value" -> id set

plus an "idx" bucket holding the bidirectional external-id <-> dense
internal-index map the Graph package uses for its adjacency representation.

# Transactions

Every operation takes a caller-supplied *Txn (a thin wrapper over *bolt.Tx).
A single bbolt transaction already gives the all-or-nothing semantics the
spec's commit protocol calls for: node/relation mutations, the event record,
the field-index update and subscriber watermark advances all happen inside
one *bolt.Tx, so a failure at any step leaves nothing visible.

# Bootstrap

Open seeds relation_info with the 14 built-in variants exactly once. If
the table is already populated, its contents must match the seeded list
exactly (count and ordering) — a mismatch is a fatal, corruption-like
condition and aborts startup.
*/
package storage
