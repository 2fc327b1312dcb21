package rules

import (
	"fmt"
	"time"

	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

// CreateBinding attaches rule to object, persisting a RuleBinding. cascading binds the rule to object and, transitively, to
// every descendant reached by HasPart.
func CreateBinding(txn *storage.Txn, ruleID, originID, objectID types.ID, cascading bool, now time.Time) (*types.RuleBinding, error) {
	if _, err := txn.GetRule(ruleID); err != nil {
		return nil, fmt.Errorf("create binding: %w", err)
	}
	binding := &types.RuleBinding{
		ID:        types.NewID(),
		RuleID:    ruleID,
		OriginID:  originID,
		ObjectID:  objectID,
		Cascading: cascading,
		CreatedAt: now,
	}
	if err := txn.PutRuleBinding(binding); err != nil {
		return nil, err
	}
	return binding, nil
}

// MaterializeInheritance gives a newly-created child its ancestors'
// cascading bindings, each recorded with OriginID left at the original
// binding's origin so later display can show where a binding came from.
func MaterializeInheritance(txn *storage.Txn, g *graph.Graph, childID types.ID, now time.Time) error {
	for _, ancestor := range g.Ancestors(childID) {
		if ancestor == childID {
			continue
		}
		bindings, err := txn.BindingsOnObject(ancestor)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			if !b.Cascading {
				continue
			}
			if _, err := CreateBinding(txn, b.RuleID, b.OriginID, childID, true, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// EffectiveBindings returns every binding that applies to objectID: its own
// bindings plus cascaded bindings already materialized onto it by
// MaterializeInheritance at creation time.
func EffectiveBindings(txn *storage.Txn, objectID types.ID) ([]types.RuleBinding, error) {
	return txn.BindingsOnObject(objectID)
}

// CheckBindings evaluates every effective binding on a resource against its
// post-mutation projection. It returns the first failing rule's id, or ""
// if every binding's expression is true.
func CheckBindings(txn *storage.Txn, resource *types.Resource) (failedRuleID types.ID, err error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RuleEvaluationDuration)

	bindings, err := EffectiveBindings(txn, resource.ID)
	if err != nil {
		return "", err
	}
	obj := ProjectResource(resource)
	for _, b := range bindings {
		rule, err := txn.GetRule(b.RuleID)
		if err != nil {
			return "", err
		}
		expr, err := Parse(rule.Expression)
		if err != nil {
			return "", fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		ok, err := Evaluate(expr, obj)
		if err != nil {
			return "", fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		if !ok {
			metrics.RuleEvaluationsTotal.WithLabelValues("failed").Inc()
			return rule.ID, nil
		}
	}
	metrics.RuleEvaluationsTotal.WithLabelValues("passed").Inc()
	return "", nil
}
