package service

import (
	"context"
	"strings"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/repository"
)

const (
	CommentLabel = "Comment"

	// OnRelationship anchors a comment to the node it is about.
	OnRelationship = "ON"

	PropCommentText = "Text"
)

// CommentService manages comments anchored to graph nodes. A comment is a
// node of its own, tied to its subject with an ON edge and to uploaded
// attachments with ATTACHES edges.
type CommentService struct {
	entities repository.EntityStore
	policy   *AccessPolicy
}

func NewCommentService(entities repository.EntityStore, policy *AccessPolicy) *CommentService {
	return &CommentService{entities: entities, policy: policy}
}

// Create posts a comment on the target node. The author must be able to
// read the target; attachment UUIDs must name File nodes the author can
// read.
func (s *CommentService) Create(ctx context.Context, actor *domain.User, targetUUID, text string, attachmentUUIDs []string) (*domain.Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrValidation
	}

	target, err := s.entities.FindNode(ctx, "", map[string]any{domain.PropUUID: targetUUID})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, target); err != nil {
		return nil, err
	}

	comment, err := s.entities.CreateNode(ctx, CommentLabel, map[string]any{PropCommentText: text}, actor)
	if err != nil {
		return nil, err
	}

	if _, err := s.entities.CreateRelationship(ctx,
		domain.Match{Property: domain.PropUUID, Value: comment.UUID},
		domain.Match{Property: domain.PropUUID, Value: target.UUID},
		OnRelationship, nil, actor); err != nil {
		return nil, err
	}

	for _, fileUUID := range attachmentUUIDs {
		if err := s.Attach(ctx, actor, comment.UUID, fileUUID); err != nil {
			return nil, err
		}
	}
	return comment, nil
}

// Attach links an uploaded file to a comment the actor may edit.
func (s *CommentService) Attach(ctx context.Context, actor *domain.User, commentUUID, fileUUID string) error {
	comment, err := s.entities.FindNode(ctx, CommentLabel, map[string]any{domain.PropUUID: commentUUID})
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionWrite, actor, comment); err != nil {
		return err
	}
	file, err := s.entities.FindNode(ctx, FileLabel, map[string]any{domain.PropUUID: fileUUID})
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionRead, actor, file); err != nil {
		return err
	}
	_, err = s.entities.CreateRelationship(ctx,
		domain.Match{Label: CommentLabel, Property: domain.PropUUID, Value: comment.UUID},
		domain.Match{Label: FileLabel, Property: domain.PropUUID, Value: file.UUID},
		AttachesRelationship, nil, actor)
	return err
}

// ListFor returns the comments anchored to a node, filtered to what the
// actor may read.
func (s *CommentService) ListFor(ctx context.Context, actor *domain.User, targetUUID string) ([]*domain.Node, error) {
	target, err := s.entities.FindNode(ctx, "", map[string]any{domain.PropUUID: targetUUID})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, target); err != nil {
		return nil, err
	}
	comments, err := s.entities.IncomingNodes(ctx, target.UUID, OnRelationship, CommentLabel)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Node, 0, len(comments))
	for _, c := range comments {
		if s.policy.CanRead(actor, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get returns one comment together with its attached files.
func (s *CommentService) Get(ctx context.Context, actor *domain.User, uuid string) (*domain.Node, []*domain.Node, error) {
	comment, err := s.entities.FindNode(ctx, CommentLabel, map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return nil, nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, comment); err != nil {
		return nil, nil, err
	}
	attachments, err := s.entities.OutgoingNodes(ctx, comment.UUID, AttachesRelationship, FileLabel)
	if err != nil {
		return nil, nil, err
	}
	return comment, attachments, nil
}

func (s *CommentService) Update(ctx context.Context, actor *domain.User, uuid, text string) (*domain.Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrValidation
	}
	comment, err := s.entities.FindNode(ctx, CommentLabel, map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionWrite, actor, comment); err != nil {
		return nil, err
	}
	return s.entities.UpdateNode(ctx, uuid, map[string]any{PropCommentText: text})
}

// Delete removes a comment and every file attached to it. If an attachment
// cannot be deleted the comment stays and the error names the survivors.
func (s *CommentService) Delete(ctx context.Context, actor *domain.User, uuid string) error {
	comment, err := s.entities.FindNode(ctx, CommentLabel, map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionDelete, actor, comment); err != nil {
		return err
	}
	return s.policy.CascadeDelete(ctx, comment)
}
