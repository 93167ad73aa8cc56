package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/testutil"
)

func newFileFixture() (*FileService, *testutil.MemEntityStore, *testutil.MemBlob) {
	entities := testutil.NewMemEntityStore()
	blobs := testutil.NewMemBlob()
	policy := NewAccessPolicy(entities, blobs)
	return NewFileService(entities, blobs, policy), entities, blobs
}

func TestFileUpload(t *testing.T) {
	svc, _, blobs := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	node, err := svc.Upload(ctx, owner, "report.pdf", "application/pdf", strings.NewReader("pdf bytes"), false, false)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", node.Properties[PropFileName])
	assert.Equal(t, "application/pdf", node.Properties[PropContentType])
	assert.Equal(t, int64(9), node.Properties[PropFileSize])
	assert.True(t, blobs.Has("report.pdf"))
}

func TestFileUpload_SanitizesName(t *testing.T) {
	svc, _, blobs := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	node, err := svc.Upload(ctx, owner, "../../etc/passwd", "text/plain", strings.NewReader("x"), false, false)
	require.NoError(t, err)
	assert.Equal(t, "etc_passwd", node.Properties[PropFileName])
	assert.True(t, blobs.Has("etc_passwd"))

	_, err = svc.Upload(ctx, owner, "???", "text/plain", strings.NewReader("x"), false, false)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFileUpload_DuplicateName(t *testing.T) {
	svc, _, _ := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	_, err := svc.Upload(ctx, owner, "a.txt", "text/plain", strings.NewReader("one"), false, false)
	require.NoError(t, err)

	_, err = svc.Upload(ctx, owner, "a.txt", "text/plain", strings.NewReader("two"), false, false)
	assert.ErrorIs(t, err, domain.ErrFileExists)
}

func TestFileUpload_Overwrite(t *testing.T) {
	svc, _, blobs := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	first, err := svc.Upload(ctx, owner, "a.txt", "text/plain", strings.NewReader("one"), false, false)
	require.NoError(t, err)

	second, err := svc.Upload(ctx, owner, "a.txt", "text/plain", strings.NewReader("longer content"), true, false)
	require.NoError(t, err)
	assert.Equal(t, first.UUID, second.UUID)
	assert.Equal(t, int64(14), second.Properties[PropFileSize])

	// Overwriting someone else's file is denied before the blob is touched.
	_, err = svc.Upload(ctx, stranger, "a.txt", "text/plain", strings.NewReader("theirs"), true, false)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	rc, err := blobs.ReadFile("a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "longer content", string(data))
}

func TestFileUpload_OverwriteLookupFailure(t *testing.T) {
	svc, entities, blobs := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	_, err := svc.Upload(ctx, owner, "a.txt", "text/plain", strings.NewReader("owners data"), false, false)
	require.NoError(t, err)

	// When the ownership check cannot run because the node lookup fails,
	// the upload must fail instead of writing unauthorized.
	entities.FindNodeErr = domain.ErrStorage
	_, err = svc.Upload(ctx, stranger, "a.txt", "text/plain", strings.NewReader("strangers data"), true, false)
	assert.ErrorIs(t, err, domain.ErrStorage)

	rc, err := blobs.ReadFile("a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "owners data", string(data))
}

func TestFileUpload_CleanupSparesExistingBlob(t *testing.T) {
	svc, entities, blobs := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	// An orphan blob with no File node, as left behind by a crashed upload.
	_, err := blobs.WriteFile("a.txt", strings.NewReader("orphan data"), false)
	require.NoError(t, err)

	entities.CreateNodeErr = domain.ErrStorage
	_, err = svc.Upload(ctx, owner, "a.txt", "text/plain", strings.NewReader("new data"), true, false)
	assert.ErrorIs(t, err, domain.ErrStorage)

	// Failure cleanup removes blobs this upload wrote fresh, never ones
	// that were already on disk before it ran.
	assert.True(t, blobs.Has("a.txt"))
}

func TestFileOpen(t *testing.T) {
	svc, _, _ := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	_, err := svc.Upload(ctx, owner, "notes.txt", "text/plain", strings.NewReader("hello world"), false, false)
	require.NoError(t, err)

	node, rc, err := svc.Open(ctx, nil, "notes.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, "notes.txt", node.Properties[PropFileName])
}

func TestFileOpen_PrivateFile(t *testing.T) {
	svc, _, _ := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	_, err := svc.Upload(ctx, owner, "secret.txt", "text/plain", strings.NewReader("classified"), false, true)
	require.NoError(t, err)

	_, _, err = svc.Open(ctx, nil, "secret.txt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, _, err = svc.Open(ctx, stranger, "secret.txt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, rc, err := svc.Open(ctx, owner, "secret.txt")
	require.NoError(t, err)
	rc.Close()
}

func TestFileList_FiltersPrivate(t *testing.T) {
	svc, _, _ := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()

	_, err := svc.Upload(ctx, owner, "pub.txt", "text/plain", strings.NewReader("x"), false, false)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, owner, "priv.txt", "text/plain", strings.NewReader("x"), false, true)
	require.NoError(t, err)

	nodes, err := svc.List(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "pub.txt", nodes[0].Properties[PropFileName])

	nodes, err = svc.List(ctx, owner, 0)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestFileDelete(t *testing.T) {
	svc, entities, blobs := newFileFixture()
	ctx := context.Background()
	owner := testutil.NewUserBuilder().Build()
	stranger := testutil.NewUserBuilder().WithEmail("other@example.com").Build()

	node, err := svc.Upload(ctx, owner, "a.txt", "text/plain", strings.NewReader("x"), false, false)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, stranger, "a.txt"), domain.ErrUnauthorized)

	require.NoError(t, svc.Delete(ctx, owner, "a.txt"))
	assert.Nil(t, entities.Node(node.UUID))
	assert.False(t, blobs.Has("a.txt"))
}
