/*
Package controller is the transaction engine: every mutation is a
serializable Write value carrying the request and the requester. The
controller's Transaction applies one Write inside one storage.Txn under a
caller-supplied transaction id, deduplicating on that id against the stored
transaction results for idempotent replay, and dispatches through the
Write's own Execute method; Op() names the operation in metrics labels.
*/
package controller
