package types

import "time"

// ResourceVariant is the position of a Resource in the Project > Collection >
// Dataset > Object hierarchy.
type ResourceVariant string

const (
	VariantProject    ResourceVariant = "Project"
	VariantCollection ResourceVariant = "Collection"
	VariantDataset    ResourceVariant = "Dataset"
	VariantObject     ResourceVariant = "Object"
)

// Visibility controls whether a resource is discoverable without a bearer
// token at all (Public), discoverable but not readable (PublicMetadata), or
// requires an explicit permission edge (Private, Workspace).
type Visibility string

const (
	VisibilityPublic         Visibility = "Public"
	VisibilityPublicMetadata Visibility = "PublicMetadata"
	VisibilityPrivate        Visibility = "Private"
	VisibilityWorkspace      Visibility = "Workspace"
)

// Status is the lifecycle state of a Resource. Deleted is terminal and is
// reached only by flipping this field — resources are never physically
// purged while inbound relations exist.
type Status string

const (
	StatusInitializing Status = "Initializing"
	StatusValidating    Status = "Validating"
	StatusAvailable     Status = "Available"
	StatusUnavailable   Status = "Unavailable"
	StatusError         Status = "Error"
	StatusDeleted       Status = "Deleted"
)

// Label is an ordered (key, value) pair attached to a Resource. Locked
// labels are written once (typically by a rule binding or the data-proxy)
// and rejected by subsequent UpdateResourceLabels calls.
type Label struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Locked bool   `json:"locked"`
}

// HashAlgorithm names a supported content hash.
type HashAlgorithm string

const (
	HashSHA256 HashAlgorithm = "SHA256"
	HashMD5    HashAlgorithm = "MD5"
)

// Hash is one entry of a Resource's hash set, keyed by HashAlgorithm.
type Hash struct {
	Algorithm HashAlgorithm `json:"algorithm"`
	Value     string        `json:"value"`
}

// Author is one entry of a Resource's ordered author list.
type Author struct {
	ID         ID     `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Identifier string `json:"identifier"`
}

// ReplicationStatus describes how a Resource's bytes have propagated to one
// data-proxy endpoint. The server never touches bytes itself;
// it only stores what the data-proxy reports.
type ReplicationStatus struct {
	ComponentID ID     `json:"component_id"`
	Status      string `json:"status"` // Pending | Running | Finished | Error
}

// Resource is a node of variant {Project, Collection, Dataset, Object}.
type Resource struct {
	ID            ID                  `json:"id"`
	Revision      uint64              `json:"revision"`
	Variant       ResourceVariant     `json:"variant"`
	Name          string              `json:"name"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Labels        []Label             `json:"labels"`
	Identifiers   []string            `json:"identifiers"`
	ContentLen    uint64              `json:"content_len"`
	ChildCount    uint64              `json:"count"`
	Visibility    Visibility          `json:"visibility"`
	Status        Status              `json:"status"`
	Locked        bool                `json:"locked"`
	Authors       []Author            `json:"authors"`
	Hashes        []Hash              `json:"hashes"`
	LicenseTag    string              `json:"license_tag"`
	Replication   []ReplicationStatus `json:"replication"`
	Snapshot      bool                `json:"snapshot"`
	CreatedAt     time.Time           `json:"created_at"`
	LastModified  time.Time           `json:"last_modified"`
}

// Ancestor-of-self: the permission algorithm in pkg/graph treats a resource
// as its own ancestor, so a direct permission edge on r grants access to r.

// IsMutable reports whether the resource can still accept field edits.
// Snapshot resources are immutable except for Status itself; Deleted
// resources never accept edits regardless of Snapshot.
func (r *Resource) IsMutable() bool {
	return r.Status != StatusDeleted && !r.Snapshot
}
