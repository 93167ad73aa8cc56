package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/testutil"
)

type commentFixture struct {
	svc      *CommentService
	files    *FileService
	entities *testutil.MemEntityStore
	blobs    *testutil.MemBlob
}

func newCommentFixture() *commentFixture {
	entities := testutil.NewMemEntityStore()
	blobs := testutil.NewMemBlob()
	policy := NewAccessPolicy(entities, blobs)
	return &commentFixture{
		svc:      NewCommentService(entities, policy),
		files:    NewFileService(entities, blobs, policy),
		entities: entities,
		blobs:    blobs,
	}
}

func (f *commentFixture) page(t *testing.T, owner *domain.User) *domain.Node {
	t.Helper()
	page, err := f.entities.CreateNode(context.Background(), "Page", map[string]any{"Title": "subject"}, owner)
	require.NoError(t, err)
	return page
}

func TestCommentCreate(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	author := testutil.NewUserBuilder().Build()
	page := f.page(t, author)

	comment, err := f.svc.Create(ctx, author, page.UUID, "first!", nil)
	require.NoError(t, err)
	assert.Equal(t, "first!", comment.Properties[PropCommentText])

	comments, err := f.svc.ListFor(ctx, nil, page.UUID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.UUID, comments[0].UUID)
}

func TestCommentCreate_Validation(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	author := testutil.NewUserBuilder().Build()
	page := f.page(t, author)

	_, err := f.svc.Create(ctx, author, page.UUID, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Create(ctx, author, "no-such-node", "hi", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommentCreate_GatedTarget(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	gated, err := f.entities.CreateNode(ctx, "Page", map[string]any{domain.PropRequiresAuth: true}, owner)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, stranger, gated.UUID, "sneaky", nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCommentAttachments(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	author := testutil.NewUserBuilder().Build()
	page := f.page(t, author)

	upload, err := f.files.Upload(ctx, author, "photo.png", "image/png", strings.NewReader("png bytes"), false, false)
	require.NoError(t, err)

	comment, err := f.svc.Create(ctx, author, page.UUID, "see attached", []string{upload.UUID})
	require.NoError(t, err)

	got, attachments, err := f.svc.Get(ctx, nil, comment.UUID)
	require.NoError(t, err)
	assert.Equal(t, comment.UUID, got.UUID)
	require.Len(t, attachments, 1)
	assert.Equal(t, upload.UUID, attachments[0].UUID)
}

func TestCommentUpdate(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	author := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()
	page := f.page(t, author)

	comment, err := f.svc.Create(ctx, author, page.UUID, "v1", nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, stranger, comment.UUID, "defaced")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	updated, err := f.svc.Update(ctx, author, comment.UUID, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Properties[PropCommentText])
}

func TestCommentDelete_CascadesAttachments(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	author := testutil.NewUserBuilder().Build()
	page := f.page(t, author)

	upload, err := f.files.Upload(ctx, author, "doc.pdf", "application/pdf", strings.NewReader("pdf bytes"), false, false)
	require.NoError(t, err)
	comment, err := f.svc.Create(ctx, author, page.UUID, "with file", []string{upload.UUID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, author, comment.UUID))

	assert.Nil(t, f.entities.Node(comment.UUID))
	assert.Nil(t, f.entities.Node(upload.UUID))
	assert.False(t, f.blobs.Has("doc.pdf"))
	// The commented node itself is untouched.
	assert.NotNil(t, f.entities.Node(page.UUID))
}

func TestCommentDelete_StuckAttachmentKeepsComment(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	author := testutil.NewUserBuilder().Build()
	page := f.page(t, author)

	upload, err := f.files.Upload(ctx, author, "doc.pdf", "application/pdf", strings.NewReader("pdf bytes"), false, false)
	require.NoError(t, err)
	comment, err := f.svc.Create(ctx, author, page.UUID, "with file", []string{upload.UUID})
	require.NoError(t, err)

	f.blobs.DeleteErr["doc.pdf"] = errors.New("backend unavailable")

	err = f.svc.Delete(ctx, author, comment.UUID)
	var partial *domain.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{upload.UUID}, partial.Failed)
	assert.NotNil(t, f.entities.Node(comment.UUID))
}
