package types

import "time"

// Rule is a user-supplied boolean predicate over a Resource-with-relations
// projection. The expression source is re-parsed on load; only the source
// string is persisted (pkg/rules re-parses it at every evaluation).
type Rule struct {
	ID          ID        `json:"id"`
	OwnerID     ID        `json:"owner_id"`
	Expression  string    `json:"expression"`
	Description string    `json:"description"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
}

// RuleBinding attaches a Rule to a resource, either directly (ObjectID ==
// OriginID) or as a cascading binding materialized onto a descendant at
// create time.
type RuleBinding struct {
	ID        ID        `json:"id"`
	RuleID    ID        `json:"rule_id"`
	OriginID  ID        `json:"origin_id"`
	ObjectID  ID        `json:"object_id"`
	Cascading bool      `json:"cascading"`
	CreatedAt time.Time `json:"created_at"`
}
