package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/testutil"
)

func newEntityFixture() (*EntityService, *testutil.MemEntityStore) {
	entities := testutil.NewMemEntityStore()
	policy := NewAccessPolicy(entities, testutil.NewMemBlob())
	return NewEntityService(entities, policy), entities
}

func TestEntityService_CreateAndGet(t *testing.T) {
	svc, _ := newEntityFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	node, err := svc.CreateNode(ctx, owner, "Article", map[string]any{"Title": "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, node.UUID)

	got, err := svc.GetNode(ctx, nil, node.UUID)
	require.NoError(t, err)
	assert.Equal(t, node.UUID, got.UUID)
}

func TestEntityService_GetGatedNode(t *testing.T) {
	svc, _ := newEntityFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	node, err := svc.CreateNode(ctx, owner, "Article", map[string]any{domain.PropRequiresAuth: true})
	require.NoError(t, err)

	_, err = svc.GetNode(ctx, nil, node.UUID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.GetNode(ctx, stranger, node.UUID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	got, err := svc.GetNode(ctx, owner, node.UUID)
	require.NoError(t, err)
	assert.Equal(t, node.UUID, got.UUID)
}

func TestEntityService_ListFiltersUnreadable(t *testing.T) {
	svc, _ := newEntityFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	public, err := svc.CreateNode(ctx, owner, "Article", map[string]any{"Title": "open"})
	require.NoError(t, err)
	_, err = svc.CreateNode(ctx, owner, "Article", map[string]any{"Title": "secret", domain.PropRequiresAuth: true})
	require.NoError(t, err)

	nodes, err := svc.ListNodes(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, public.UUID, nodes[0].UUID)

	nodes, err = svc.ListNodes(ctx, owner, 0)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestEntityService_SearchNodes(t *testing.T) {
	svc, _ := newEntityFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	_, err := svc.CreateNode(ctx, owner, "Article", map[string]any{"Category": "go"})
	require.NoError(t, err)
	_, err = svc.CreateNode(ctx, owner, "Article", map[string]any{"Category": "rust"})
	require.NoError(t, err)

	nodes, err := svc.SearchNodes(ctx, nil, "Category", "go", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "go", nodes[0].Properties["Category"])
}

func TestEntityService_UpdateRequiresOwnership(t *testing.T) {
	svc, _ := newEntityFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	node, err := svc.CreateNode(ctx, owner, "Article", map[string]any{"Title": "v1"})
	require.NoError(t, err)

	_, err = svc.UpdateNode(ctx, stranger, node.UUID, map[string]any{"Title": "hacked"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	updated, err := svc.UpdateNode(ctx, owner, node.UUID, map[string]any{"Title": "v2"})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Properties["Title"])
}

func TestEntityService_DeleteNode(t *testing.T) {
	svc, entities := newEntityFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	node, err := svc.CreateNode(ctx, owner, "Article", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteNode(ctx, stranger, node.UUID), domain.ErrUnauthorized)
	require.NoError(t, svc.DeleteNode(ctx, owner, node.UUID))
	assert.Nil(t, entities.Node(node.UUID))

	assert.ErrorIs(t, svc.DeleteNode(ctx, owner, node.UUID), domain.ErrNotFound)
}

func TestEntityService_Relationships(t *testing.T) {
	svc, _ := newEntityFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	a, err := svc.CreateNode(ctx, owner, "Article", map[string]any{"Title": "a"})
	require.NoError(t, err)
	b, err := svc.CreateNode(ctx, owner, "Article", map[string]any{"Title": "b"})
	require.NoError(t, err)

	rel, err := svc.CreateRelationship(ctx, owner,
		domain.Match{Property: domain.PropUUID, Value: a.UUID},
		domain.Match{Property: domain.PropUUID, Value: b.UUID},
		"REFERENCES", map[string]any{"Note": "cross link"})
	require.NoError(t, err)
	assert.NotEmpty(t, rel.UUID)

	got, err := svc.GetRelationship(ctx, nil, rel.UUID)
	require.NoError(t, err)
	assert.Equal(t, "REFERENCES", got.Type)

	_, err = svc.UpdateRelationship(ctx, stranger, rel.UUID, map[string]any{"Note": "edit"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	updated, err := svc.UpdateRelationship(ctx, owner, rel.UUID, map[string]any{"Note": "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Properties["Note"])

	assert.ErrorIs(t, svc.DeleteRelationship(ctx, stranger, rel.UUID), domain.ErrUnauthorized)
	require.NoError(t, svc.DeleteRelationship(ctx, owner, rel.UUID))
	_, err = svc.GetRelationship(ctx, owner, rel.UUID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
