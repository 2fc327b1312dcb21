package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/strata/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes        = []byte("nodes")
	bucketRelations    = []byte("relations")
	bucketRelationInfo = []byte("relation_info")
	bucketIssuers      = []byte("issuers")
	bucketPubkeys      = []byte("pubkeys")
	bucketEvents       = []byte("events")
	bucketSubscribers  = []byte("subscribers")
	bucketOidcMap      = []byte("oidc_map")
	bucketFieldIndex   = []byte("field_index")
	bucketIdx          = []byte("idx")       // id -> internal index
	bucketIdxRev       = []byte("idx_rev")   // internal index -> id
	bucketMeta         = []byte("meta")      // small singleton values (sequence counters)
	bucketRules        = []byte("rules")
	bucketRuleBindings = []byte("rule_bindings")
	bucketBindingsByObject = []byte("rule_bindings_by_object")
	bucketTransactions = []byte("transactions")

	keyNextInternalIdx = []byte("next_internal_idx")
	keyNextEventID     = []byte("next_event_id")
	keyNextRelSeq      = []byte("next_relation_seq")
)

// Store owns the embedded bbolt environment backing every persisted Strata
// entity. All reads and writes happen through a caller-held Txn.
type Store struct {
	db *bolt.DB

	// seq caches the three monotonic counters (internal node index, event
	// id, relation sequence) in memory; they are also persisted in
	// bucketMeta so a restart resumes from the right value.
	mu           sync.Mutex
	nextInternal uint32
	nextEventID  uint64
	nextRelSeq   uint32
}

// Open creates or opens the bbolt-backed store rooted at dataDir/strata.db,
// creates every bucket on first use, and bootstraps the 14 seeded relation
// variants exactly once. A persisted relation_info table that disagrees
// with the seeded list in count or ordering is treated as corruption and
// aborts startup.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "strata.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{
			bucketNodes, bucketRelations, bucketRelationInfo, bucketIssuers,
			bucketPubkeys, bucketEvents, bucketSubscribers, bucketOidcMap,
			bucketFieldIndex, bucketIdx, bucketIdxRev, bucketMeta,
			bucketRelBySource, bucketRelByTarget,
			bucketRules, bucketRuleBindings, bucketBindingsByObject,
			bucketTransactions,
		} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		if err := bootstrapRelationInfo(tx); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := s.loadCounters(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) loadCounters() error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		s.nextInternal = getU32(meta, keyNextInternalIdx)
		s.nextEventID = getU64(meta, keyNextEventID)
		s.nextRelSeq = getU32(meta, keyNextRelSeq)
		return nil
	})
}

// Close closes the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// bootstrapRelationInfo seeds the 14 built-in variants on first open and
// validates them on every subsequent open.
func bootstrapRelationInfo(tx *bolt.Tx) error {
	b := tx.Bucket(bucketRelationInfo)
	seeded := types.SeededRelationInfos()

	if b.Stats().KeyN == 0 {
		for _, info := range seeded {
			data, err := encodeJSON(info)
			if err != nil {
				return err
			}
			if err := b.Put(u32Key(uint32(info.Index)), data); err != nil {
				return err
			}
		}
		return nil
	}

	if b.Stats().KeyN != len(seeded) {
		return fmt.Errorf("relation_info: persisted table has %d entries, expected %d (seeded 12-variant layouts must be migrated before upgrading, see DESIGN.md)", b.Stats().KeyN, len(seeded))
	}
	for _, want := range seeded {
		raw := b.Get(u32Key(uint32(want.Index)))
		if raw == nil {
			return fmt.Errorf("relation_info: missing seeded variant %d (%s)", want.Index, want.Forward)
		}
		var got types.RelationInfo
		if err := decodeJSON(raw, &got); err != nil {
			return err
		}
		if got.Forward != want.Forward || got.Backward != want.Backward || got.Internal != want.Internal {
			return fmt.Errorf("relation_info: persisted variant %d disagrees with seeded registry", want.Index)
		}
	}
	return nil
}

func u32Key(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func u64Key(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func getU32(b *bolt.Bucket, key []byte) uint32 {
	v := b.Get(key)
	if len(v) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(v)
}

func getU64(b *bolt.Bucket, key []byte) uint64 {
	v := b.Get(key)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}
