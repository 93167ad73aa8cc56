package service

import (
	"context"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/repository"
)

// EntityService is the generic node/relationship CRUD surface, with the
// access policy applied before every read of a gated node and every
// mutation of an existing one.
type EntityService struct {
	entities repository.EntityStore
	policy   *AccessPolicy
}

func NewEntityService(entities repository.EntityStore, policy *AccessPolicy) *EntityService {
	return &EntityService{entities: entities, policy: policy}
}

func (s *EntityService) CreateNode(ctx context.Context, actor *domain.User, label string, attributes map[string]any) (*domain.Node, error) {
	return s.entities.CreateNode(ctx, label, attributes, actor)
}

func (s *EntityService) GetNode(ctx context.Context, actor *domain.User, uuid string) (*domain.Node, error) {
	node, err := s.entities.FindNode(ctx, "", map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *EntityService) ListNodes(ctx context.Context, actor *domain.User, limit int) ([]*domain.Node, error) {
	nodes, err := s.entities.ListNodes(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.readable(actor, nodes), nil
}

func (s *EntityService) SearchNodes(ctx context.Context, actor *domain.User, property string, value any, limit int) ([]*domain.Node, error) {
	nodes, err := s.entities.FindNodes(ctx, "", map[string]any{property: value}, limit)
	if err != nil {
		return nil, err
	}
	return s.readable(actor, nodes), nil
}

// readable drops nodes the actor may not see instead of failing the whole
// listing.
func (s *EntityService) readable(actor *domain.User, nodes []*domain.Node) []*domain.Node {
	out := make([]*domain.Node, 0, len(nodes))
	for _, node := range nodes {
		if s.policy.CanRead(actor, node) {
			out = append(out, node)
		}
	}
	return out
}

func (s *EntityService) UpdateNode(ctx context.Context, actor *domain.User, uuid string, attributes map[string]any) (*domain.Node, error) {
	node, err := s.entities.FindNode(ctx, "", map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionWrite, actor, node); err != nil {
		return nil, err
	}
	return s.entities.UpdateNode(ctx, uuid, attributes)
}

// DeleteNode removes a node and its owned sub-resources. The cascade keeps
// the node in place if any owned sub-resource cannot be deleted.
func (s *EntityService) DeleteNode(ctx context.Context, actor *domain.User, uuid string) error {
	node, err := s.entities.FindNode(ctx, "", map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionDelete, actor, node); err != nil {
		return err
	}
	return s.policy.CascadeDelete(ctx, node)
}

func (s *EntityService) CreateRelationship(ctx context.Context, actor *domain.User, source, target domain.Match, relType string, attributes map[string]any) (*domain.Relationship, error) {
	return s.entities.CreateRelationship(ctx, source, target, relType, attributes, actor)
}

func (s *EntityService) GetRelationship(ctx context.Context, actor *domain.User, uuid string) (*domain.Relationship, error) {
	rel, err := s.entities.FindRelationship(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *EntityService) UpdateRelationship(ctx context.Context, actor *domain.User, uuid string, attributes map[string]any) (*domain.Relationship, error) {
	rel, err := s.entities.FindRelationship(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionWrite, actor, rel); err != nil {
		return nil, err
	}
	return s.entities.UpdateRelationship(ctx, uuid, attributes)
}

func (s *EntityService) DeleteRelationship(ctx context.Context, actor *domain.User, uuid string) error {
	rel, err := s.entities.FindRelationship(ctx, uuid)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionDelete, actor, rel); err != nil {
		return err
	}
	return s.entities.DeleteRelationship(ctx, uuid)
}
