package storage

import (
	"github.com/cuemby/strata/pkg/types"
)

// PutNode inserts a brand new node, assigning it a dense internal index for
// pkg/graph's adjacency representation.
func (t *Txn) PutNode(n *types.Node) error {
	nodes := t.bucket(bucketNodes)
	if nodes.Get([]byte(n.ID)) != nil {
		return conflict("node " + n.ID.String() + " already exists")
	}
	data, err := encodeJSON(n)
	if err != nil {
		return internal("encode node", err)
	}
	if err := nodes.Put([]byte(n.ID), data); err != nil {
		return internal("put node", err)
	}
	return t.assignInternalIndex(n.ID)
}

// UpdateNode overwrites an existing node's payload in place without
// touching its internal index.
func (t *Txn) UpdateNode(n *types.Node) error {
	nodes := t.bucket(bucketNodes)
	if nodes.Get([]byte(n.ID)) == nil {
		return notFound("node " + n.ID.String())
	}
	data, err := encodeJSON(n)
	if err != nil {
		return internal("encode node", err)
	}
	if err := nodes.Put([]byte(n.ID), data); err != nil {
		return internal("put node", err)
	}
	return nil
}

// GetNode fetches a node by id.
func (t *Txn) GetNode(id types.ID) (*types.Node, error) {
	raw := t.bucket(bucketNodes).Get([]byte(id))
	if raw == nil {
		return nil, notFound("node " + id.String())
	}
	var n types.Node
	if err := decodeJSON(raw, &n); err != nil {
		return nil, internal("decode node", err)
	}
	return &n, nil
}

// DeleteNode removes a node and its internal-index mapping. Relations
// touching it are left to the caller to clean up (controller writes remove
// relations before the node itself so the graph mirror never observes a
// dangling edge).
func (t *Txn) DeleteNode(id types.ID) error {
	nodes := t.bucket(bucketNodes)
	if nodes.Get([]byte(id)) == nil {
		return notFound("node " + id.String())
	}
	if err := nodes.Delete([]byte(id)); err != nil {
		return internal("delete node", err)
	}
	return t.releaseInternalIndex(id)
}

func (t *Txn) assignInternalIndex(id types.ID) error {
	idx := t.nextInternalIndex()
	key := u32Key(idx)
	if err := t.bucket(bucketIdx).Put([]byte(id), key); err != nil {
		return internal("put idx mapping", err)
	}
	if err := t.bucket(bucketIdxRev).Put(key, []byte(id)); err != nil {
		return internal("put idx_rev mapping", err)
	}
	return nil
}

func (t *Txn) releaseInternalIndex(id types.ID) error {
	idxBucket := t.bucket(bucketIdx)
	key := idxBucket.Get([]byte(id))
	if key == nil {
		return nil
	}
	if err := idxBucket.Delete([]byte(id)); err != nil {
		return internal("delete idx mapping", err)
	}
	if err := t.bucket(bucketIdxRev).Delete(key); err != nil {
		return internal("delete idx_rev mapping", err)
	}
	return nil
}

// InternalIndex returns the dense internal index assigned to id.
func (t *Txn) InternalIndex(id types.ID) (uint32, bool) {
	raw := t.bucket(bucketIdx).Get([]byte(id))
	if raw == nil {
		return 0, false
	}
	return getU32FromBytes(raw), true
}

// IDFromInternalIndex reverses InternalIndex.
func (t *Txn) IDFromInternalIndex(idx uint32) (types.ID, bool) {
	raw := t.bucket(bucketIdxRev).Get(u32Key(idx))
	if raw == nil {
		return "", false
	}
	return types.ID(raw), true
}

// AllNodes iterates every persisted node. Used by pkg/graph to rebuild its
// in-memory mirror on startup.
func (t *Txn) AllNodes(fn func(*types.Node) error) error {
	return t.bucket(bucketNodes).ForEach(func(_, v []byte) error {
		var n types.Node
		if err := decodeJSON(v, &n); err != nil {
			return internal("decode node", err)
		}
		return fn(&n)
	})
}

func getU32FromBytes(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
