package storage

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/cuemby/strata/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// FieldColumn is the on-disk column number of one of the 25 indexed fields.
type FieldColumn int

const (
	FieldID            FieldColumn = 0
	FieldVariant       FieldColumn = 1
	FieldName          FieldColumn = 2
	FieldDescription   FieldColumn = 3
	FieldLabels        FieldColumn = 4
	FieldIdentifiers   FieldColumn = 5
	FieldContentLen    FieldColumn = 6
	FieldCount         FieldColumn = 7
	FieldVisibility    FieldColumn = 8
	FieldCreatedAt     FieldColumn = 9
	FieldLastModified  FieldColumn = 10
	FieldAuthors       FieldColumn = 11
	FieldLocked        FieldColumn = 12
	FieldLicense       FieldColumn = 13
	FieldHashes        FieldColumn = 14
	FieldLocation      FieldColumn = 15
	FieldTags          FieldColumn = 16
	FieldExpiresAt     FieldColumn = 17
	FieldFirstName     FieldColumn = 18
	FieldLastName      FieldColumn = 19
	FieldEmail         FieldColumn = 20
	FieldGlobalAdmin   FieldColumn = 21
	FieldTag           FieldColumn = 22
	FieldComponentType FieldColumn = 23
	FieldEndpoints     FieldColumn = 24

	FieldColumnCount = 25
)

func fieldBucketName(col FieldColumn) []byte {
	return []byte(strconv.Itoa(int(col)))
}

// fieldBucket returns the nested sub-bucket for column, creating it if this
// is the first write to it. Each sub-bucket holds composite keys
// "value\x00id" -> nil, so every node id recorded under a given value is a
// single prefix scan (members) away.
func (t *Txn) fieldBucket(col FieldColumn) (*bolt.Bucket, error) {
	parent := t.bucket(bucketFieldIndex)
	b, err := parent.CreateBucketIfNotExists(fieldBucketName(col))
	if err != nil {
		return nil, internal(fmt.Sprintf("create field bucket %d", col), err)
	}
	return b, nil
}

func fieldMemberKey(value string, id types.ID) []byte {
	return []byte(value + "\x00" + string(id))
}

func addFieldMember(b *bolt.Bucket, value string, id types.ID) error {
	if err := b.Put(fieldMemberKey(value, id), nil); err != nil {
		return internal("put field index entry", err)
	}
	return nil
}

func removeFieldMember(b *bolt.Bucket, value string, id types.ID) error {
	if err := b.Delete(fieldMemberKey(value, id)); err != nil {
		return internal("delete field index entry", err)
	}
	return nil
}

func fieldMembers(b *bolt.Bucket, value string) ([]types.ID, error) {
	prefix := []byte(value + "\x00")
	var out []types.ID
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		out = append(out, types.ID(k[len(prefix):]))
	}
	return out, nil
}

// IndexFields projects node onto its meaningful columns and records
// node.ID under each resulting value, so a later lookup by any of the 25
// fields is a single bucket scan. Call once per commit, after
// ReindexFields has cleared any stale entries for the same id.
func (t *Txn) IndexFields(n *types.Node) error {
	for col, values := range projectNode(n) {
		b, err := t.fieldBucket(col)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := addFieldMember(b, v, n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnindexFields removes every column entry previously recorded for node.
// Called before re-indexing an updated node, and when a node is deleted.
func (t *Txn) UnindexFields(n *types.Node) error {
	for col, values := range projectNode(n) {
		b, err := t.fieldBucket(col)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := removeFieldMember(b, v, n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReindexFields clears old's index entries and writes fresh's, in that
// order, inside the same transaction.
func (t *Txn) ReindexFields(old, fresh *types.Node) error {
	if old != nil {
		if err := t.UnindexFields(old); err != nil {
			return err
		}
	}
	return t.IndexFields(fresh)
}

// QueryField returns every node id whose column col has the exact value v.
func (t *Txn) QueryField(col FieldColumn, v string) ([]types.ID, error) {
	parent := t.bucket(bucketFieldIndex)
	sub := parent.Bucket(fieldBucketName(col))
	if sub == nil {
		return nil, nil
	}
	return fieldMembers(sub, v)
}

// projectNode maps a node's populated fields onto their column values. A
// column absent from the result means that field is not meaningful for
// this node's variant.
func projectNode(n *types.Node) map[FieldColumn][]string {
	out := map[FieldColumn][]string{
		FieldID:      {n.ID.String()},
		FieldVariant: {string(n.Variant)},
	}
	switch n.Variant {
	case types.NodeResource:
		r := n.Resource
		if r == nil {
			return out
		}
		out[FieldName] = []string{r.Name}
		out[FieldDescription] = []string{r.Description}
		for _, l := range r.Labels {
			out[FieldLabels] = append(out[FieldLabels], l.Key+"="+l.Value)
		}
		out[FieldIdentifiers] = append([]string(nil), r.Identifiers...)
		out[FieldContentLen] = []string{strconv.FormatUint(r.ContentLen, 10)}
		out[FieldCount] = []string{strconv.FormatUint(r.ChildCount, 10)}
		out[FieldVisibility] = []string{string(r.Visibility)}
		out[FieldCreatedAt] = []string{r.CreatedAt.UTC().Format(timeLayout)}
		out[FieldLastModified] = []string{r.LastModified.UTC().Format(timeLayout)}
		for _, a := range r.Authors {
			out[FieldAuthors] = append(out[FieldAuthors], a.ID.String())
		}
		out[FieldLocked] = []string{strconv.FormatBool(r.Locked)}
		out[FieldLicense] = []string{r.LicenseTag}
		for _, h := range r.Hashes {
			out[FieldHashes] = append(out[FieldHashes], string(h.Algorithm)+":"+h.Value)
		}
	case types.NodeUser:
		u := n.User
		if u == nil {
			return out
		}
		out[FieldFirstName] = []string{u.FirstName}
		out[FieldLastName] = []string{u.LastName}
		out[FieldEmail] = []string{u.Email}
		out[FieldGlobalAdmin] = []string{strconv.FormatBool(u.GlobalAdmin)}
	case types.NodeToken:
		tok := n.Token
		if tok == nil {
			return out
		}
		out[FieldName] = []string{tok.Name}
		out[FieldExpiresAt] = []string{tok.ExpiresAt.UTC().Format(timeLayout)}
	case types.NodeRealm:
		r := n.Realm
		if r == nil {
			return out
		}
		out[FieldName] = []string{r.Name}
		out[FieldDescription] = []string{r.Description}
		out[FieldTag] = []string{r.Tag}
	case types.NodeGroup:
		g := n.Group
		if g == nil {
			return out
		}
		out[FieldName] = []string{g.Name}
		out[FieldDescription] = []string{g.Description}
	case types.NodeComponent:
		c := n.Component
		if c == nil {
			return out
		}
		out[FieldName] = []string{c.Name}
		out[FieldComponentType] = []string{string(c.Variant)}
		for _, h := range c.Hosts {
			out[FieldEndpoints] = append(out[FieldEndpoints], h.Name+"="+h.URL)
		}
	case types.NodeServiceAccount:
		sa := n.ServiceAccount
		if sa == nil {
			return out
		}
		out[FieldName] = []string{sa.Name}
	}
	return out
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
