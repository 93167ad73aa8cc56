package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/repository"
)

// Action is the kind of access being authorized.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Resource is anything ownership and visibility can be decided for.
type Resource interface {
	Property(key string) (any, bool)
}

// AttachesRelationship connects a composite resource to the files it owns.
const AttachesRelationship = "ATTACHES"

// AccessPolicy makes ownership, admin and public-visibility decisions, and
// orchestrates cascading deletes of owned sub-resources.
type AccessPolicy struct {
	entities repository.EntityStore
	blobs    repository.BlobStorage
}

func NewAccessPolicy(entities repository.EntityStore, blobs repository.BlobStorage) *AccessPolicy {
	return &AccessPolicy{entities: entities, blobs: blobs}
}

// CanRead is true when the resource carries no visibility restriction, or
// the actor owns it, or the actor is an admin.
func (p *AccessPolicy) CanRead(actor *domain.User, resource Resource) bool {
	restricted, _ := resource.Property(domain.PropRequiresAuth)
	if restricted != true {
		return true
	}
	if actor == nil {
		return false
	}
	return actor.Admin || p.owns(actor, resource)
}

// CanWrite is true only for the resource's owner/creator or an admin.
func (p *AccessPolicy) CanWrite(actor *domain.User, resource Resource) bool {
	if actor == nil {
		return false
	}
	return actor.Admin || p.owns(actor, resource)
}

func (p *AccessPolicy) owns(actor *domain.User, resource Resource) bool {
	if owner, ok := resource.Property(domain.PropOwner); ok && owner == actor.UUID {
		return true
	}
	if creator, ok := resource.Property(domain.PropCreator); ok && creator == actor.UUID {
		return true
	}
	return false
}

// Authorize evaluates the predicate for action and fails with
// ErrUnauthorized on denial. It never mutates anything. The denial does not
// say whether the resource exists or is merely inaccessible.
func (p *AccessPolicy) Authorize(action Action, actor *domain.User, resource Resource) error {
	var allowed bool
	switch action {
	case ActionRead:
		allowed = p.CanRead(actor, resource)
	case ActionWrite, ActionDelete:
		allowed = p.CanWrite(actor, resource)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if !allowed {
		return domain.ErrUnauthorized
	}
	return nil
}

// CascadeDelete removes a resource together with the files it owns. Each
// attached file is deleted first (blob, then node); if any fail, the parent
// is left in place and a PartialFailureError lists the failed sub-resource
// UUIDs. The parent is never removed while an owned sub-resource survives.
func (p *AccessPolicy) CascadeDelete(ctx context.Context, resource *domain.Node) error {
	attached, err := p.entities.OutgoingNodes(ctx, resource.UUID, AttachesRelationship, FileLabel)
	if err != nil {
		return err
	}

	var failed []string
	for _, file := range attached {
		if err := p.deleteFile(ctx, file); err != nil {
			failed = append(failed, file.UUID)
		}
	}
	if len(failed) > 0 {
		return &domain.PartialFailureError{Failed: failed}
	}

	return p.entities.DeleteNode(ctx, resource.UUID)
}

// deleteFile removes a file's blob and node. A blob that is already gone is
// not an error; a node without its blob is the orphan we must avoid, so the
// node goes second.
func (p *AccessPolicy) deleteFile(ctx context.Context, file *domain.Node) error {
	if key := blobKey(file); key != "" {
		if err := p.blobs.DeleteFile(key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return p.entities.DeleteNode(ctx, file.UUID)
}

// blobKey is the storage key a File node points at.
func blobKey(file *domain.Node) string {
	for _, prop := range []string{PropFileTarget, PropFileName} {
		if v, ok := file.Property(prop); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
