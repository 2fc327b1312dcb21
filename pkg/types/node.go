package types

import "fmt"

// NodeVariant tags which payload a Node carries.
type NodeVariant string

const (
	NodeResource       NodeVariant = "Resource"
	NodeUser           NodeVariant = "User"
	NodeServiceAccount NodeVariant = "ServiceAccount"
	NodeToken          NodeVariant = "Token"
	NodeGroup          NodeVariant = "Group"
	NodeRealm          NodeVariant = "Realm"
	NodeComponent      NodeVariant = "Component"
)

// Node is the graph's unit of storage: a tagged union over every node
// payload type. Exactly one of the typed fields is populated, selected by
// Variant. pkg/storage persists Node as-is (JSON); pkg/graph only ever looks
// at Variant and the id.
type Node struct {
	ID      ID          `json:"id"`
	Variant NodeVariant `json:"variant"`

	Resource       *Resource       `json:"resource,omitempty"`
	User           *User           `json:"user,omitempty"`
	ServiceAccount *ServiceAccount `json:"service_account,omitempty"`
	Token          *Token          `json:"token,omitempty"`
	Group          *Group          `json:"group,omitempty"`
	Realm          *Realm          `json:"realm,omitempty"`
	Component      *Component      `json:"component,omitempty"`
}

// NewResourceNode wraps r as a Node.
func NewResourceNode(r *Resource) *Node {
	return &Node{ID: r.ID, Variant: NodeResource, Resource: r}
}

// NewUserNode wraps u as a Node.
func NewUserNode(u *User) *Node {
	return &Node{ID: u.ID, Variant: NodeUser, User: u}
}

// NewServiceAccountNode wraps sa as a Node.
func NewServiceAccountNode(sa *ServiceAccount) *Node {
	return &Node{ID: sa.ID, Variant: NodeServiceAccount, ServiceAccount: sa}
}

// NewTokenNode wraps t as a Node.
func NewTokenNode(t *Token) *Node {
	return &Node{ID: t.ID, Variant: NodeToken, Token: t}
}

// NewGroupNode wraps g as a Node.
func NewGroupNode(g *Group) *Node {
	return &Node{ID: g.ID, Variant: NodeGroup, Group: g}
}

// NewRealmNode wraps r as a Node.
func NewRealmNode(r *Realm) *Node {
	return &Node{ID: r.ID, Variant: NodeRealm, Realm: r}
}

// NewComponentNode wraps c as a Node.
func NewComponentNode(c *Component) *Node {
	return &Node{ID: c.ID, Variant: NodeComponent, Component: c}
}

// AsResource type-asserts the node's payload, returning an error that names
// the mismatched variant rather than panicking (the rule evaluator and
// controller both rely on this never panicking on malformed input).
func (n *Node) AsResource() (*Resource, error) {
	if n.Variant != NodeResource || n.Resource == nil {
		return nil, fmt.Errorf("node %s is not a Resource (variant %s)", n.ID, n.Variant)
	}
	return n.Resource, nil
}

// AsUser type-asserts the node's payload.
func (n *Node) AsUser() (*User, error) {
	if n.Variant != NodeUser || n.User == nil {
		return nil, fmt.Errorf("node %s is not a User (variant %s)", n.ID, n.Variant)
	}
	return n.User, nil
}

// AsToken type-asserts the node's payload.
func (n *Node) AsToken() (*Token, error) {
	if n.Variant != NodeToken || n.Token == nil {
		return nil, fmt.Errorf("node %s is not a Token (variant %s)", n.ID, n.Variant)
	}
	return n.Token, nil
}
