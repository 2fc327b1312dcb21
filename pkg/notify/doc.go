/*
Package notify is the subject-addressed event fan-out: a central dispatch
goroutine broadcasts to per-subscriber buffered channels instead of
blocking the committing transaction. Every notification carries a
deterministic checksum
(github.com/cespare/xxhash/v2 over the event's canonical projection) so a
subscriber can detect a replayed or corrupted delivery without re-fetching
the resource.
*/
package notify
