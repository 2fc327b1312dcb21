package storage

import (
	"bytes"

	"github.com/cuemby/strata/pkg/types"
)

var (
	bucketRelBySource = []byte("rel_by_source")
	bucketRelByTarget = []byte("rel_by_target")
)

// AddRelation appends a new edge and indexes it by both endpoints.
func (t *Txn) AddRelation(source, target types.ID, variant types.RelationVariant) (*types.Relation, error) {
	seq := t.nextRelationSeq()
	rel := &types.Relation{Sequence: seq, Source: source, Target: target, Variant: variant}
	data, err := encodeJSON(rel)
	if err != nil {
		return nil, internal("encode relation", err)
	}
	key := u32Key(seq)
	if err := t.bucket(bucketRelations).Put(key, data); err != nil {
		return nil, internal("put relation", err)
	}
	if err := t.bucket(bucketRelBySource).Put(compositeKey(source, key), nil); err != nil {
		return nil, internal("index relation by source", err)
	}
	if err := t.bucket(bucketRelByTarget).Put(compositeKey(target, key), nil); err != nil {
		return nil, internal("index relation by target", err)
	}
	return rel, nil
}

// RemoveRelation deletes the edge with the given sequence number.
func (t *Txn) RemoveRelation(seq uint32) error {
	key := u32Key(seq)
	raw := t.bucket(bucketRelations).Get(key)
	if raw == nil {
		return notFound("relation")
	}
	var rel types.Relation
	if err := decodeJSON(raw, &rel); err != nil {
		return internal("decode relation", err)
	}
	if err := t.bucket(bucketRelations).Delete(key); err != nil {
		return internal("delete relation", err)
	}
	if err := t.bucket(bucketRelBySource).Delete(compositeKey(rel.Source, key)); err != nil {
		return internal("unindex relation by source", err)
	}
	if err := t.bucket(bucketRelByTarget).Delete(compositeKey(rel.Target, key)); err != nil {
		return internal("unindex relation by target", err)
	}
	return nil
}

// RelationFilter narrows GetRelations. A zero-value Variants means "any
// variant". Direction selects whether Node is treated as source or target.
type RelationFilter struct {
	Node      types.ID
	Direction types.Direction
	Variants  []types.RelationVariant
	Offset    int
	Limit     int // 0 means unbounded
}

// GetRelations returns the edges touching filter.Node on the side given by
// filter.Direction, optionally restricted to filter.Variants, paginated by
// Offset/Limit.
func (t *Txn) GetRelations(filter RelationFilter) (rels []types.Relation, nextOffset int, err error) {
	idx := bucketRelBySource
	if filter.Direction == types.DirectionIncoming {
		idx = bucketRelByTarget
	}
	c := t.bucket(idx).Cursor()
	prefix := []byte(filter.Node)

	allowed := func(v types.RelationVariant) bool {
		if len(filter.Variants) == 0 {
			return true
		}
		for _, want := range filter.Variants {
			if want == v {
				return true
			}
		}
		return false
	}

	skipped := 0
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		seqKey := k[len(prefix):]
		raw := t.bucket(bucketRelations).Get(seqKey)
		if raw == nil {
			continue
		}
		var rel types.Relation
		if err := decodeJSON(raw, &rel); err != nil {
			return nil, 0, internal("decode relation", err)
		}
		if !allowed(rel.Variant) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(rels) >= filter.Limit {
			nextOffset = skipped
			return rels, nextOffset, nil
		}
		rels = append(rels, rel)
		skipped++
	}
	return rels, 0, nil
}

// RelationInfoByIndex returns the seeded metadata for a relation variant.
func (t *Txn) RelationInfoByIndex(v types.RelationVariant) (*types.RelationInfo, error) {
	raw := t.bucket(bucketRelationInfo).Get(u32Key(uint32(v)))
	if raw == nil {
		return nil, notFound("relation_info variant")
	}
	var info types.RelationInfo
	if err := decodeJSON(raw, &info); err != nil {
		return nil, internal("decode relation_info", err)
	}
	return &info, nil
}

// AllRelationInfos returns every registered relation variant, seeded and
// custom alike, in index order.
func (t *Txn) AllRelationInfos() ([]types.RelationInfo, error) {
	var infos []types.RelationInfo
	err := t.bucket(bucketRelationInfo).ForEach(func(_, v []byte) error {
		var info types.RelationInfo
		if err := decodeJSON(v, &info); err != nil {
			return internal("decode relation_info", err)
		}
		infos = append(infos, info)
		return nil
	})
	return infos, err
}

// CreateRelationVariant registers a new, user-defined relation type and
// returns its freshly assigned dense index.
func (t *Txn) CreateRelationVariant(forward, backward string) (types.RelationVariant, error) {
	b := t.bucket(bucketRelationInfo)
	next := uint32(b.Stats().KeyN)
	info := types.RelationInfo{Index: types.RelationVariant(next), Forward: forward, Backward: backward, Internal: false}
	data, err := encodeJSON(info)
	if err != nil {
		return 0, internal("encode relation_info", err)
	}
	if err := b.Put(u32Key(next), data); err != nil {
		return 0, internal("put relation_info", err)
	}
	return info.Index, nil
}

// AllRelations iterates every persisted edge. Used by pkg/graph to rebuild
// its in-memory mirror on startup.
func (t *Txn) AllRelations(fn func(*types.Relation) error) error {
	return t.bucket(bucketRelations).ForEach(func(_, v []byte) error {
		var rel types.Relation
		if err := decodeJSON(v, &rel); err != nil {
			return internal("decode relation", err)
		}
		return fn(&rel)
	})
}

func compositeKey(id types.ID, seqKey []byte) []byte {
	key := make([]byte, 0, len(id)+len(seqKey))
	key = append(key, []byte(id)...)
	key = append(key, seqKey...)
	return key
}
