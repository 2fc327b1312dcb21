package rules

import (
	"testing"

	"github.com/cuemby/strata/pkg/types"
)

func mustParse(t *testing.T, src string) *Expr {
	t.Helper()
	expr, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	return expr
}

func TestEvaluateStringEquality(t *testing.T) {
	obj := ProjectResource(&types.Resource{Visibility: types.VisibilityPublic})
	ok, err := Evaluate(mustParse(t, `object.visibility == "Public"`), obj)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !ok {
		t.Error("Evaluate() = false, want true")
	}
}

func TestEvaluateAndOr(t *testing.T) {
	obj := ProjectResource(&types.Resource{
		Name:       "tmp-scratch",
		ContentLen: 10,
	})
	ok, err := Evaluate(mustParse(t, `object.name startsWith "tmp-" && object.content_len < 100`), obj)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !ok {
		t.Error("Evaluate() = false, want true")
	}

	ok, err = Evaluate(mustParse(t, `object.name startsWith "prod-" || object.content_len < 100`), obj)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !ok {
		t.Error("Evaluate(or) = false, want true")
	}
}

func TestEvaluateLabels(t *testing.T) {
	obj := ProjectResource(&types.Resource{
		Labels: []types.Label{{Key: "classification", Value: "restricted"}},
	})
	ok, err := Evaluate(mustParse(t, `object.labels["classification"] == "restricted"`), obj)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !ok {
		t.Error("Evaluate() = false, want true")
	}
}

func TestEvaluateNegation(t *testing.T) {
	obj := ProjectResource(&types.Resource{Locked: false})
	ok, err := Evaluate(mustParse(t, `!object.locked`), obj)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !ok {
		t.Error("Evaluate(!locked) = false, want true")
	}
}

func TestEvaluateUnknownFieldErrors(t *testing.T) {
	obj := ProjectResource(&types.Resource{})
	_, err := Evaluate(mustParse(t, `object.nonexistent == "x"`), obj)
	if err == nil {
		t.Error("Evaluate() on unknown field = nil error, want an error")
	}
}
