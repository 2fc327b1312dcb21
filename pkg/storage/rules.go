package storage

import (
	"bytes"

	"github.com/cuemby/strata/pkg/types"
)

// PutRule inserts or replaces a rule's persisted expression source.
func (t *Txn) PutRule(rule *types.Rule) error {
	data, err := encodeJSON(rule)
	if err != nil {
		return internal("encode rule", err)
	}
	if err := t.bucket(bucketRules).Put([]byte(rule.ID), data); err != nil {
		return internal("put rule", err)
	}
	return nil
}

// GetRule fetches a rule by id.
func (t *Txn) GetRule(id types.ID) (*types.Rule, error) {
	raw := t.bucket(bucketRules).Get([]byte(id))
	if raw == nil {
		return nil, notFound("rule " + id.String())
	}
	var rule types.Rule
	if err := decodeJSON(raw, &rule); err != nil {
		return nil, internal("decode rule", err)
	}
	return &rule, nil
}

// DeleteRule removes a rule's persisted record. Bindings referencing it are
// the caller's responsibility to clean up first.
func (t *Txn) DeleteRule(id types.ID) error {
	if t.bucket(bucketRules).Get([]byte(id)) == nil {
		return notFound("rule " + id.String())
	}
	if err := t.bucket(bucketRules).Delete([]byte(id)); err != nil {
		return internal("delete rule", err)
	}
	return nil
}

// PutRuleBinding inserts or replaces a binding and indexes it by the
// object it is attached to, so EffectiveBindings can fetch one node's
// bindings in a single prefix scan.
func (t *Txn) PutRuleBinding(b *types.RuleBinding) error {
	data, err := encodeJSON(b)
	if err != nil {
		return internal("encode rule binding", err)
	}
	if err := t.bucket(bucketRuleBindings).Put([]byte(b.ID), data); err != nil {
		return internal("put rule binding", err)
	}
	if err := t.bucket(bucketBindingsByObject).Put(compositeKey(b.ObjectID, []byte(b.ID)), nil); err != nil {
		return internal("index rule binding", err)
	}
	return nil
}

// GetRuleBinding fetches a binding by id.
func (t *Txn) GetRuleBinding(id types.ID) (*types.RuleBinding, error) {
	raw := t.bucket(bucketRuleBindings).Get([]byte(id))
	if raw == nil {
		return nil, notFound("rule binding " + id.String())
	}
	var b types.RuleBinding
	if err := decodeJSON(raw, &b); err != nil {
		return nil, internal("decode rule binding", err)
	}
	return &b, nil
}

// DeleteRuleBinding removes a binding and its object index entry.
func (t *Txn) DeleteRuleBinding(id types.ID) error {
	b, err := t.GetRuleBinding(id)
	if err != nil {
		return err
	}
	if err := t.bucket(bucketRuleBindings).Delete([]byte(id)); err != nil {
		return internal("delete rule binding", err)
	}
	if err := t.bucket(bucketBindingsByObject).Delete(compositeKey(b.ObjectID, []byte(id))); err != nil {
		return internal("unindex rule binding", err)
	}
	return nil
}

// BindingsOnObject returns every binding directly attached to objectID
// (not including cascaded bindings inherited from ancestors — pkg/rules
// walks the ancestry itself via pkg/graph).
func (t *Txn) BindingsOnObject(objectID types.ID) ([]types.RuleBinding, error) {
	prefix := []byte(objectID)
	c := t.bucket(bucketBindingsByObject).Cursor()
	var out []types.RuleBinding
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		bindingID := types.ID(k[len(prefix):])
		b, err := t.GetRuleBinding(bindingID)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}
