package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/repository"
	"github.com/obsidian-cms/obsidian/internal/repository/localfs"
)

const (
	FileLabel = "File"

	PropFileName    = "Name"
	PropFileTarget  = "Target"
	PropContentType = "ContentType"
	PropFileSize    = "Size"
)

// FileService stores uploaded blobs on the storage backend and mirrors each
// one as a File node so the graph can attach, link, and authorize it.
type FileService struct {
	entities repository.EntityStore
	blobs    repository.BlobStorage
	policy   *AccessPolicy
}

func NewFileService(entities repository.EntityStore, blobs repository.BlobStorage, policy *AccessPolicy) *FileService {
	return &FileService{entities: entities, blobs: blobs, policy: policy}
}

// Upload sanitizes the client-supplied filename, writes the blob, and
// creates the File node. The sanitized name doubles as the storage key, so
// a second upload with the same name fails with ErrFileExists unless
// overwrite is set.
func (s *FileService) Upload(ctx context.Context, actor *domain.User, filename, contentType string, r io.Reader, overwrite bool, private bool) (*domain.Node, error) {
	name, err := localfs.SecureFilename(filename)
	if err != nil {
		return nil, err
	}

	// Resolve the existing node before touching the blob so a denied
	// overwrite cannot clobber someone else's data. A failed lookup is
	// fatal; proceeding without the ownership check would let the write
	// through unauthorized.
	var existing *domain.Node
	preexisting := false
	if overwrite {
		node, err := s.entities.FindNode(ctx, FileLabel, map[string]any{PropFileName: name})
		switch {
		case err == nil:
			if err := s.policy.Authorize(ActionWrite, actor, node); err != nil {
				return nil, err
			}
			existing = node
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		if preexisting, err = s.blobs.Exists(name); err != nil {
			return nil, err
		}
	}

	size, err := s.blobs.WriteFile(name, r, overwrite)
	if err != nil {
		return nil, err
	}

	attrs := map[string]any{
		PropFileName:    name,
		PropFileTarget:  name,
		PropContentType: contentType,
		PropFileSize:    size,
	}
	if private {
		attrs[domain.PropRequiresAuth] = true
	}

	if existing != nil {
		return s.entities.UpdateNode(ctx, existing.UUID, attrs)
	}

	node, err := s.entities.CreateNode(ctx, FileLabel, attrs, actor)
	if err != nil {
		// Keep storage and graph consistent when the node cannot be
		// created for a blob this upload wrote fresh. A blob that was
		// already there before the overwrite stays put.
		if !preexisting {
			if delErr := s.blobs.DeleteFile(name); delErr != nil {
				return nil, fmt.Errorf("%w: orphaned blob %q", err, name)
			}
		}
		return nil, err
	}
	return node, nil
}

// Open returns the File node and a reader over its blob. Guests may open
// public files only.
func (s *FileService) Open(ctx context.Context, actor *domain.User, name string) (*domain.Node, io.ReadCloser, error) {
	node, err := s.entities.FindNode(ctx, FileLabel, map[string]any{PropFileName: name})
	if err != nil {
		return nil, nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, node); err != nil {
		return nil, nil, err
	}
	target := name
	if v, ok := node.Property(PropFileTarget); ok {
		if str, ok := v.(string); ok && str != "" {
			target = str
		}
	}
	rc, err := s.blobs.ReadFile(target)
	if err != nil {
		return nil, nil, err
	}
	return node, rc, nil
}

func (s *FileService) Get(ctx context.Context, actor *domain.User, name string) (*domain.Node, error) {
	node, err := s.entities.FindNode(ctx, FileLabel, map[string]any{PropFileName: name})
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ActionRead, actor, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *FileService) List(ctx context.Context, actor *domain.User, limit int) ([]*domain.Node, error) {
	nodes, err := s.entities.FindNodes(ctx, FileLabel, nil, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Node, 0, len(nodes))
	for _, node := range nodes {
		if s.policy.CanRead(actor, node) {
			out = append(out, node)
		}
	}
	return out, nil
}

// Delete removes the blob first, then the node. A blob already missing from
// storage does not block removing the node.
func (s *FileService) Delete(ctx context.Context, actor *domain.User, name string) error {
	node, err := s.entities.FindNode(ctx, FileLabel, map[string]any{PropFileName: name})
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(ActionDelete, actor, node); err != nil {
		return err
	}
	return s.policy.deleteFile(ctx, node)
}
