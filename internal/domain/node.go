package domain

// Protected property names. These are assigned by the entity store itself
// and can never arrive through a caller-supplied attribute map.
const (
	PropUUID         = "UUID"
	PropCreator      = "Creator"
	PropModifier     = "Modifier"
	PropOwner        = "Owner"
	PropCreatedDate  = "CreatedDate"
	PropModifiedDate = "ModifiedDate"
)

// PropRequiresAuth marks a node as gated: anonymous callers may not read it.
const PropRequiresAuth = "RequiresAuth"

var protectedProperties = map[string]struct{}{
	PropUUID:         {},
	PropCreator:      {},
	PropModifier:     {},
	PropOwner:        {},
	PropCreatedDate:  {},
	PropModifiedDate: {},
}

func IsProtectedProperty(key string) bool {
	_, ok := protectedProperties[key]
	return ok
}

// Node is a graph entity with labels and an open property map.
//
// InternalID is the storage-assigned identifier. It may be reused after a
// node is deleted and must never leave the process as a durable reference;
// UUID is the stable, caller-facing identity.
type Node struct {
	InternalID int64          `json:"-"`
	UUID       string         `json:"uuid"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Property returns a property value and whether it is present.
func (n *Node) Property(key string) (any, bool) {
	v, ok := n.Properties[key]
	return v, ok
}

func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Relationship is a directed, typed edge between two nodes. Like nodes,
// relationships carry a store-assigned UUID so the CRUD surface never hands
// out InternalID as a durable handle.
type Relationship struct {
	InternalID int64          `json:"-"`
	UUID       string         `json:"uuid"`
	Type       string         `json:"type"`
	SourceUUID string         `json:"sourceUuid"`
	TargetUUID string         `json:"targetUuid"`
	Properties map[string]any `json:"properties"`
}

func (r *Relationship) Property(key string) (any, bool) {
	v, ok := r.Properties[key]
	return v, ok
}

// Match identifies a node by label and a single property equality. It must
// resolve to exactly one node when used as a relationship endpoint.
type Match struct {
	Label    string `json:"label"`
	Property string `json:"property"`
	Value    any    `json:"value"`
}
