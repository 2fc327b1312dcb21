package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/strata/pkg/types"
)

// Object is the read-only projection an expression evaluates against: a
// flat field -> value map, plus a separate label lookup for
// object.labels["key"].
type Object struct {
	Fields map[string]any
	Labels map[string]string
}

// ProjectResource builds the Object a rule binding sees when a resource is
// created or modified.
func ProjectResource(r *types.Resource) Object {
	labels := make(map[string]string, len(r.Labels))
	for _, l := range r.Labels {
		labels[l.Key] = l.Value
	}
	return Object{
		Labels: labels,
		Fields: map[string]any{
			"name":         r.Name,
			"title":        r.Title,
			"description":  r.Description,
			"content_len":  float64(r.ContentLen),
			"count":        float64(r.ChildCount),
			"visibility":   string(r.Visibility),
			"status":       string(r.Status),
			"locked":       r.Locked,
			"license_tag":  r.LicenseTag,
			"variant":      string(r.Variant),
			"snapshot":     r.Snapshot,
		},
	}
}

// Evaluate runs expr against obj. Evaluation is pure and total: every
// syntactically valid expression returns a bool or a descriptive error,
// never panics.
func Evaluate(expr *Expr, obj Object) (bool, error) {
	return evalOr(expr.Or, obj)
}

func evalOr(e *OrExpr, obj Object) (bool, error) {
	result, err := evalAnd(e.Left, obj)
	if err != nil {
		return false, err
	}
	for _, right := range e.Right {
		if result {
			return true, nil
		}
		result, err = evalAnd(right, obj)
		if err != nil {
			return false, err
		}
	}
	return result, nil
}

func evalAnd(e *AndExpr, obj Object) (bool, error) {
	result, err := evalNot(e.Left, obj)
	if err != nil {
		return false, err
	}
	for _, right := range e.Right {
		if !result {
			return false, nil
		}
		result, err = evalNot(right, obj)
		if err != nil {
			return false, err
		}
	}
	return result, nil
}

func evalNot(e *NotExpr, obj Object) (bool, error) {
	result, err := evalComparison(e.Atom, obj)
	if err != nil {
		return false, err
	}
	if e.Negated {
		return !result, nil
	}
	return result, nil
}

func evalComparison(c *Comparison, obj Object) (bool, error) {
	left, err := evalOperand(c.Left, obj)
	if err != nil {
		return false, err
	}
	if c.Op == nil {
		b, ok := left.(bool)
		if !ok {
			return false, fmt.Errorf("bare operand %v is not a boolean", left)
		}
		return b, nil
	}
	right, err := evalOperand(c.Right, obj)
	if err != nil {
		return false, err
	}
	return applyOp(*c.Op, left, right)
}

func evalOperand(o *Operand, obj Object) (any, error) {
	switch {
	case o.Field != nil:
		return resolveField(o.Field, obj)
	case o.String != nil:
		return *o.String, nil
	case o.Number != nil:
		return *o.Number, nil
	case o.Boolean != nil:
		return *o.Boolean == "true", nil
	case o.Sub != nil:
		b, err := Evaluate(o.Sub, obj)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("empty operand")
	}
}

func resolveField(f *Field, obj Object) (any, error) {
	if f.Name == "labels" {
		if f.Key == nil {
			return nil, fmt.Errorf("object.labels requires a key, e.g. object.labels[\"k\"]")
		}
		return obj.Labels[*f.Key], nil
	}
	v, ok := obj.Fields[f.Name]
	if !ok {
		return nil, fmt.Errorf("unknown field object.%s", f.Name)
	}
	return v, nil
}

func applyOp(op string, left, right any) (bool, error) {
	switch op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	case "startsWith":
		ls, rs, err := bothStrings(op, left, right)
		if err != nil {
			return false, err
		}
		return strings.HasPrefix(ls, rs), nil
	case "contains":
		ls, rs, err := bothStrings(op, left, right)
		if err != nil {
			return false, err
		}
		return strings.Contains(ls, rs), nil
	case "<", "<=", ">", ">=":
		lf, rf, err := bothNumbers(op, left, right)
		if err != nil {
			return false, err
		}
		switch op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		default:
			return lf >= rf, nil
		}
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}

func equalValues(left, right any) bool {
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if lok && rok {
		return lf == rf
	}
	return fmt.Sprint(left) == fmt.Sprint(right)
}

func bothStrings(op string, left, right any) (string, string, error) {
	ls, lok := left.(string)
	rs, rok := right.(string)
	if !lok || !rok {
		return "", "", fmt.Errorf("%s requires string operands", op)
	}
	return ls, rs, nil
}

func bothNumbers(op string, left, right any) (float64, float64, error) {
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return 0, 0, fmt.Errorf("%s requires numeric operands", op)
	}
	return lf, rf, nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
