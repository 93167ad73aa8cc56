package repository

import (
	"context"
	"io"
	"time"

	"github.com/obsidian-cms/obsidian/internal/domain"
)

// EntityStore is the generic create/read/update/delete surface over labeled
// nodes and typed relationships. Implementations enforce the restricted
// label list, the optional label/relationship allow lists and the protected
// property rule before issuing any mutation.
type EntityStore interface {
	// CreateNode persists a new labeled node. When createdBy is non-nil the
	// node and an OWNS edge from the creator are written in one transaction.
	CreateNode(ctx context.Context, label string, attributes map[string]any, createdBy *domain.User) (*domain.Node, error)

	// CreateRelationship connects two nodes, each identified by a Match that
	// must resolve to exactly one node.
	CreateRelationship(ctx context.Context, source, target domain.Match, relType string, attributes map[string]any, createdBy *domain.User) (*domain.Relationship, error)

	// FindNode returns the single node matching label (optional) and all
	// property filters, or ErrNotFound.
	FindNode(ctx context.Context, label string, filters map[string]any) (*domain.Node, error)

	// FindNodes returns up to limit nodes matching label (optional) and all
	// property filters.
	FindNodes(ctx context.Context, label string, filters map[string]any, limit int) ([]*domain.Node, error)

	// ListNodes returns up to limit nodes of any label.
	ListNodes(ctx context.Context, limit int) ([]*domain.Node, error)

	// UpdateNode merges attributes into the node; protected property keys
	// are silently stripped, unspecified keys are left untouched.
	UpdateNode(ctx context.Context, uuid string, attributes map[string]any) (*domain.Node, error)

	// DeleteNode removes the node and all its incident relationships.
	DeleteNode(ctx context.Context, uuid string) error

	FindRelationship(ctx context.Context, uuid string) (*domain.Relationship, error)
	UpdateRelationship(ctx context.Context, uuid string, attributes map[string]any) (*domain.Relationship, error)
	DeleteRelationship(ctx context.Context, uuid string) error

	// OutgoingNodes returns nodes reachable from the given node over one
	// outgoing relationship of relType, optionally filtered by label.
	OutgoingNodes(ctx context.Context, uuid, relType, label string) ([]*domain.Node, error)

	// IncomingNodes returns nodes with an outgoing relationship of relType
	// pointing at the given node, optionally filtered by label.
	IncomingNodes(ctx context.Context, uuid, relType, label string) ([]*domain.Node, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUUID(ctx context.Context, uuid string) (*domain.User, error)
	UpdateLastSeen(ctx context.Context, uuid string, when time.Time) error
}

// BlobStorage reads and writes raw byte streams by key. Keys are sanitized
// before any filesystem interaction.
type BlobStorage interface {
	WriteFile(id string, r io.Reader, overwrite bool) (int64, error)
	ReadFile(id string) (io.ReadCloser, error)
	DeleteFile(id string) error
	ListFiles() ([]string, error)
	Exists(id string) (bool, error)
}

type Repositories struct {
	Entities EntityStore
	Users    UserRepository
	Blobs    BlobStorage
}
