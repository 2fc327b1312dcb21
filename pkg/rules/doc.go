/*
Package rules implements the rule engine of: a small, pure, total
predicate DSL evaluated against a read-only projection of a resource. The
grammar is compiled once at rule-create time with
github.com/alecthomas/participle/v2 and re-parsed from the persisted
expression source on load — the AST itself is never persisted, only the
original text, so a future grammar change stays backward compatible with
already-stored rules.

Example expressions:

	object.visibility == "Public"
	object.labels["classification"] == "restricted" && object.content_len < 1000000
	object.name startsWith "tmp-" || object.locked == true
*/
package rules
