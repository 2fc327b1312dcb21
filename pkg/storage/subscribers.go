package storage

import "github.com/cuemby/strata/pkg/types"

// PutSubscriber inserts or replaces a subscriber's durable state.
func (t *Txn) PutSubscriber(sub *types.Subscriber) error {
	data, err := encodeJSON(sub)
	if err != nil {
		return internal("encode subscriber", err)
	}
	if err := t.bucket(bucketSubscribers).Put([]byte(sub.ID), data); err != nil {
		return internal("put subscriber", err)
	}
	return nil
}

// GetSubscriber fetches a subscriber by id, erroring if it was never
// created (the caller is expected to have already validated existence
// before acking).
func (t *Txn) GetSubscriber(id types.ID) (*types.Subscriber, error) {
	raw := t.bucket(bucketSubscribers).Get([]byte(id))
	if raw == nil {
		return nil, notFound("subscriber " + id.String())
	}
	var sub types.Subscriber
	if err := decodeJSON(raw, &sub); err != nil {
		return nil, internal("decode subscriber", err)
	}
	return &sub, nil
}

// AdvanceWatermark moves a subscriber's last-acked event id forward. It
// refuses to move the watermark backwards so a stale or replayed ack never
// regresses replay state.
func (t *Txn) AdvanceWatermark(id types.ID, eventID uint64) error {
	sub, err := t.GetSubscriber(id)
	if err != nil {
		return err
	}
	if eventID <= sub.LastAckedEventID {
		return nil
	}
	sub.LastAckedEventID = eventID
	return t.PutSubscriber(sub)
}

// DeleteSubscriber removes a subscriber's durable state.
func (t *Txn) DeleteSubscriber(id types.ID) error {
	if t.bucket(bucketSubscribers).Get([]byte(id)) == nil {
		return notFound("subscriber " + id.String())
	}
	if err := t.bucket(bucketSubscribers).Delete([]byte(id)); err != nil {
		return internal("delete subscriber", err)
	}
	return nil
}

// AllSubscribers iterates every durable subscriber, used by pkg/notify to
// rebuild its fan-out routing table on startup.
func (t *Txn) AllSubscribers(fn func(*types.Subscriber) error) error {
	return t.bucket(bucketSubscribers).ForEach(func(_, v []byte) error {
		var sub types.Subscriber
		if err := decodeJSON(v, &sub); err != nil {
			return internal("decode subscriber", err)
		}
		return fn(&sub)
	})
}
