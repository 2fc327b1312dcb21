package storage

import "encoding/json"

// TransactionRecord is the idempotent-replay record of one committed write
//: the event it produced and the exact response
// bytes the caller received, so a re-submitted tx-id returns a
// byte-identical response without re-running the write.
type TransactionRecord struct {
	EventID  uint64          `json:"event_id"`
	Response json.RawMessage `json:"response"`
}

// PutTransactionResult records txID's outcome. Call this inside the same
// Txn as the write it describes.
func (t *Txn) PutTransactionResult(txID string, eventID uint64, response json.RawMessage) error {
	data, err := encodeJSON(TransactionRecord{EventID: eventID, Response: response})
	if err != nil {
		return internal("encode transaction record", err)
	}
	if err := t.bucket(bucketTransactions).Put([]byte(txID), data); err != nil {
		return internal("put transaction record", err)
	}
	return nil
}

// GetTransactionResult looks up a previously committed tx-id. The bool is
// false (with a nil error) when txID has never been seen, distinguishing
// "not yet run" from a decode failure.
func (t *Txn) GetTransactionResult(txID string) (*TransactionRecord, bool, error) {
	raw := t.bucket(bucketTransactions).Get([]byte(txID))
	if raw == nil {
		return nil, false, nil
	}
	var rec TransactionRecord
	if err := decodeJSON(raw, &rec); err != nil {
		return nil, false, internal("decode transaction record", err)
	}
	return &rec, true, nil
}
