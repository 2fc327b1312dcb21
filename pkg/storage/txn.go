package storage

import bolt "go.etcd.io/bbolt"

// Txn wraps a single *bolt.Tx. Every store method takes one so that a
// controller write spanning several table mutations, the event record and
// the field index all land in one bbolt commit.
type Txn struct {
	tx       *bolt.Tx
	store    *Store
	writable bool
}

// Begin starts a transaction. Callers must Commit or Rollback exactly once.
func (s *Store) Begin(writable bool) (*Txn, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, internal("begin transaction", err)
	}
	return &Txn{tx: tx, store: s, writable: writable}, nil
}

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(*Txn) error) error {
	txn, err := s.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Rollback()
	return fn(txn)
}

// Update runs fn inside a writable transaction, committing on success and
// rolling back if fn returns an error.
func (s *Store) Update(fn func(*Txn) error) error {
	txn, err := s.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit()
}

// Commit finalizes the transaction and persists the cached counters.
func (t *Txn) Commit() error {
	if t.writable {
		if err := t.saveCounters(); err != nil {
			t.tx.Rollback()
			return err
		}
	}
	if err := t.tx.Commit(); err != nil {
		return internal("commit transaction", err)
	}
	return nil
}

// Rollback discards the transaction. Safe to call after Commit; bbolt
// ignores a Rollback on an already-completed transaction's error.
func (t *Txn) Rollback() {
	_ = t.tx.Rollback()
}

func (t *Txn) saveCounters() error {
	meta := t.tx.Bucket(bucketMeta)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := meta.Put(keyNextInternalIdx, u32Key(t.store.nextInternal)); err != nil {
		return internal("persist internal index counter", err)
	}
	if err := meta.Put(keyNextEventID, u64Key(t.store.nextEventID)); err != nil {
		return internal("persist event id counter", err)
	}
	if err := meta.Put(keyNextRelSeq, u32Key(t.store.nextRelSeq)); err != nil {
		return internal("persist relation sequence counter", err)
	}
	return nil
}

func (t *Txn) bucket(name []byte) *bolt.Bucket {
	return t.tx.Bucket(name)
}

// nextInternalIndex allocates the next dense internal index used by
// pkg/graph's adjacency representation.
func (t *Txn) nextInternalIndex() uint32 {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	v := t.store.nextInternal
	t.store.nextInternal++
	return v
}

// nextEventSeq allocates the next monotonic event id.
func (t *Txn) nextEventSeq() uint64 {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.nextEventID == 0 {
		t.store.nextEventID = 1
	}
	v := t.store.nextEventID
	t.store.nextEventID++
	return v
}

// nextRelationSeq allocates the next relation table key.
func (t *Txn) nextRelationSeq() uint32 {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	v := t.store.nextRelSeq
	t.store.nextRelSeq++
	return v
}
