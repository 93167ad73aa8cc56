package service

import (
	"context"
	"errors"
	"strings"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/repository"
)

const (
	PageLabel = "Page"
	URLLabel  = "URL"

	// LinksRelationship points a URL node at the page it serves.
	LinksRelationship = "LINKS"

	PropPageTitle = "Title"
	PropPageBody  = "Body"
	PropURLValue  = "URL"
)

// PageService manages the CMS page layer. Pages are title-unique content
// nodes; each page may be addressed by any number of URL nodes whose LINKS
// edge points at it.
type PageService struct {
	entities repository.EntityStore
	policy   *AccessPolicy
}

func NewPageService(entities repository.EntityStore, policy *AccessPolicy) *PageService {
	return &PageService{entities: entities, policy: policy}
}

// Create makes a page whose title is unique across all pages.
func (s *PageService) Create(ctx context.Context, actor *domain.User, title, body string, private bool) (*domain.Node, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrValidation
	}

	_, err := s.entities.FindNode(ctx, PageLabel, map[string]any{PropPageTitle: title})
	switch {
	case err == nil:
		return nil, domain.ErrConflict
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	attrs := map[string]any{
		PropPageTitle: title,
		PropPageBody:  body,
	}
	if private {
		attrs[domain.PropRequiresAuth] = true
	}
	return s.entities.CreateNode(ctx, PageLabel, attrs, actor)
}

// AddURL creates a URL node for an address and points it at the page. An
// address already linked to another page is a conflict.
func (s *PageService) AddURL(ctx context.Context, actor *domain.User, pageUUID, address string) (*domain.Node, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, domain.ErrValidation
	}

	page, err := s.entities.FindNode(ctx, PageLabel, map[string]any{domain.PropUUID: pageUUID})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionWrite, actor, page); err != nil {
		return nil, err
	}

	_, err = s.entities.FindNode(ctx, URLLabel, map[string]any{PropURLValue: address})
	switch {
	case err == nil:
		return nil, domain.ErrConflict
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	urlNode, err := s.entities.CreateNode(ctx, URLLabel, map[string]any{PropURLValue: address}, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.entities.CreateRelationship(ctx,
		domain.Match{Label: URLLabel, Property: domain.PropUUID, Value: urlNode.UUID},
		domain.Match{Label: PageLabel, Property: domain.PropUUID, Value: page.UUID},
		LinksRelationship, nil, actor); err != nil {
		return nil, err
	}
	return urlNode, nil
}

// Relink points an existing URL at a different page, dropping its previous
// LINKS edge.
func (s *PageService) Relink(ctx context.Context, actor *domain.User, address, pageUUID string) error {
	urlNode, err := s.entities.FindNode(ctx, URLLabel, map[string]any{PropURLValue: address})
	if err != nil {
		return err
	}
	page, err := s.entities.FindNode(ctx, PageLabel, map[string]any{domain.PropUUID: pageUUID})
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionWrite, actor, page); err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionWrite, actor, urlNode); err != nil {
		return err
	}

	// Old edge goes first so the URL never points at two pages.
	if err := s.entities.DeleteNode(ctx, urlNode.UUID); err != nil {
		return err
	}
	fresh, err := s.entities.CreateNode(ctx, URLLabel, map[string]any{PropURLValue: address}, actor)
	if err != nil {
		return err
	}
	_, err = s.entities.CreateRelationship(ctx,
		domain.Match{Label: URLLabel, Property: domain.PropUUID, Value: fresh.UUID},
		domain.Match{Label: PageLabel, Property: domain.PropUUID, Value: page.UUID},
		LinksRelationship, nil, actor)
	return err
}

// Resolve returns the page a URL address points at.
func (s *PageService) Resolve(ctx context.Context, actor *domain.User, address string) (*domain.Node, error) {
	urlNode, err := s.entities.FindNode(ctx, URLLabel, map[string]any{PropURLValue: address})
	if err != nil {
		return nil, err
	}
	pages, err := s.entities.OutgoingNodes(ctx, urlNode.UUID, LinksRelationship, PageLabel)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, domain.ErrNotFound
	}
	page := pages[0]
	if err := s.policy.Authorize(ActionRead, actor, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PageService) GetByTitle(ctx context.Context, actor *domain.User, title string) (*domain.Node, error) {
	page, err := s.entities.FindNode(ctx, PageLabel, map[string]any{PropPageTitle: title})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PageService) List(ctx context.Context, actor *domain.User, limit int) ([]*domain.Node, error) {
	pages, err := s.entities.FindNodes(ctx, PageLabel, nil, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Node, 0, len(pages))
	for _, page := range pages {
		if s.policy.CanRead(actor, page) {
			out = append(out, page)
		}
	}
	return out, nil
}

func (s *PageService) Update(ctx context.Context, actor *domain.User, uuid string, attributes map[string]any) (*domain.Node, error) {
	page, err := s.entities.FindNode(ctx, PageLabel, map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionWrite, actor, page); err != nil {
		return nil, err
	}
	if title, ok := attributes[PropPageTitle]; ok {
		if str, _ := title.(string); strings.TrimSpace(str) == "" {
			return nil, domain.ErrValidation
		}
		if existing, err := s.entities.FindNode(ctx, PageLabel, map[string]any{PropPageTitle: title}); err == nil && existing.UUID != uuid {
			return nil, domain.ErrConflict
		}
	}
	return s.entities.UpdateNode(ctx, uuid, attributes)
}

// Delete removes a page, the URL nodes pointing at it, and its attached
// files.
func (s *PageService) Delete(ctx context.Context, actor *domain.User, uuid string) error {
	page, err := s.entities.FindNode(ctx, PageLabel, map[string]any{domain.PropUUID: uuid})
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionDelete, actor, page); err != nil {
		return err
	}

	urls, err := s.entities.IncomingNodes(ctx, page.UUID, LinksRelationship, URLLabel)
	if err != nil {
		return err
	}
	var failed []string
	for _, u := range urls {
		if err := s.entities.DeleteNode(ctx, u.UUID); err != nil {
			failed = append(failed, u.UUID)
		}
	}
	if len(failed) > 0 {
		return &domain.PartialFailureError{Failed: failed}
	}

	return s.policy.CascadeDelete(ctx, page)
}
