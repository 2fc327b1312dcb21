package storage

import (
	"time"

	"github.com/cuemby/strata/pkg/types"
)

// RegisterEvent appends a new event record under the next monotonic id and
// returns the populated event. Call this inside the same Txn as the
// mutation it describes so both land in one bbolt commit.
func (t *Txn) RegisterEvent(kind types.EventKind, touched []types.ID, checksum uint64, now time.Time) (*types.Event, error) {
	ev := &types.Event{
		ID:        t.nextEventSeq(),
		Kind:      kind,
		Touched:   touched,
		Checksum:  checksum,
		CreatedAt: now,
	}
	data, err := encodeJSON(ev)
	if err != nil {
		return nil, internal("encode event", err)
	}
	if err := t.bucket(bucketEvents).Put(u64Key(ev.ID), data); err != nil {
		return nil, internal("put event", err)
	}
	return ev, nil
}

// GetEvent fetches a single event by id.
func (t *Txn) GetEvent(id uint64) (*types.Event, error) {
	raw := t.bucket(bucketEvents).Get(u64Key(id))
	if raw == nil {
		return nil, notFound("event")
	}
	var ev types.Event
	if err := decodeJSON(raw, &ev); err != nil {
		return nil, internal("decode event", err)
	}
	return &ev, nil
}

// EventsSince streams every event with id > after, in id order, stopping
// early if fn returns false. Used to replay missed notifications to a
// reconnecting subscriber.
func (t *Txn) EventsSince(after uint64, fn func(*types.Event) (keepGoing bool, err error)) error {
	c := t.bucket(bucketEvents).Cursor()
	for k, v := c.Seek(u64Key(after + 1)); k != nil; k, v = c.Next() {
		var ev types.Event
		if err := decodeJSON(v, &ev); err != nil {
			return internal("decode event", err)
		}
		keepGoing, err := fn(&ev)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	return nil
}
