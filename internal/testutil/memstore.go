package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/obsidian-cms/obsidian/internal/domain"
)

// MemEntityStore is an in-memory repository.EntityStore used by service
// tests. It mirrors the store's externally observable semantics (protected
// property rejection, match resolution, detach delete) without a graph
// database behind it. Label policy is not mimicked here; that belongs to
// the real store and is covered by its own tests.
type MemEntityStore struct {
	mu    sync.Mutex
	seq   int64
	nodes map[string]*domain.Node
	rels  map[string]*domain.Relationship

	// DeleteNodeErr injects a failure for specific node UUIDs.
	DeleteNodeErr map[string]error

	// FindNodeErr, when set, makes every FindNode call fail.
	FindNodeErr error

	// CreateNodeErr, when set, makes every CreateNode call fail.
	CreateNodeErr error
}

func NewMemEntityStore() *MemEntityStore {
	return &MemEntityStore{
		nodes:         make(map[string]*domain.Node),
		rels:          make(map[string]*domain.Relationship),
		DeleteNodeErr: make(map[string]error),
	}
}

func (m *MemEntityStore) CreateNode(ctx context.Context, label string, attributes map[string]any, createdBy *domain.User) (*domain.Node, error) {
	if m.CreateNodeErr != nil {
		return nil, m.CreateNodeErr
	}
	for key := range attributes {
		if domain.IsProtectedProperty(key) {
			return nil, fmt.Errorf("%w: property %s is set by the store", domain.ErrPolicyViolation, key)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	props := make(map[string]any, len(attributes)+6)
	for k, v := range attributes {
		props[k] = v
	}
	now := time.Now().UTC().Format(time.RFC3339)
	id := uuid.NewString()
	props[domain.PropUUID] = id
	props[domain.PropCreatedDate] = now
	props[domain.PropModifiedDate] = now
	if createdBy != nil {
		props[domain.PropCreator] = createdBy.UUID
		props[domain.PropOwner] = createdBy.UUID
	}

	m.seq++
	node := &domain.Node{InternalID: m.seq, UUID: id, Labels: []string{label}, Properties: props}
	m.nodes[id] = node

	if createdBy != nil {
		m.seq++
		rid := uuid.NewString()
		m.rels[rid] = &domain.Relationship{
			InternalID: m.seq,
			UUID:       rid,
			Type:       "OWNS",
			SourceUUID: createdBy.UUID,
			TargetUUID: id,
			Properties: map[string]any{domain.PropUUID: rid, domain.PropCreatedDate: now},
		}
	}
	return node, nil
}

func (m *MemEntityStore) CreateRelationship(ctx context.Context, source, target domain.Match, relType string, attributes map[string]any, createdBy *domain.User) (*domain.Relationship, error) {
	for key := range attributes {
		if domain.IsProtectedProperty(key) {
			return nil, fmt.Errorf("%w: property %s is set by the store", domain.ErrPolicyViolation, key)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sourceUUID, err := m.resolveLocked(source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	targetUUID, err := m.resolveLocked(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	props := make(map[string]any, len(attributes)+3)
	for k, v := range attributes {
		props[k] = v
	}
	rid := uuid.NewString()
	props[domain.PropUUID] = rid
	props[domain.PropCreatedDate] = time.Now().UTC().Format(time.RFC3339)
	if createdBy != nil {
		props[domain.PropCreator] = createdBy.UUID
	}

	m.seq++
	rel := &domain.Relationship{
		InternalID: m.seq,
		UUID:       rid,
		Type:       relType,
		SourceUUID: sourceUUID,
		TargetUUID: targetUUID,
		Properties: props,
	}
	m.rels[rid] = rel
	return rel, nil
}

func (m *MemEntityStore) resolveLocked(match domain.Match) (string, error) {
	var found []string
	for _, node := range m.nodes {
		if match.Label != "" && !node.HasLabel(match.Label) {
			continue
		}
		if v, ok := node.Properties[match.Property]; ok && v == match.Value {
			found = append(found, node.UUID)
		}
	}
	switch len(found) {
	case 0:
		return "", domain.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return "", domain.ErrAmbiguous
	}
}

func (m *MemEntityStore) FindNode(ctx context.Context, label string, filters map[string]any) (*domain.Node, error) {
	if m.FindNodeErr != nil {
		return nil, m.FindNodeErr
	}
	nodes, err := m.FindNodes(ctx, label, filters, 1)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, domain.ErrNotFound
	}
	return nodes[0], nil
}

func (m *MemEntityStore) FindNodes(ctx context.Context, label string, filters map[string]any, limit int) ([]*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 25
	}
	var out []*domain.Node
	for _, node := range m.sortedNodesLocked() {
		if label != "" && !node.HasLabel(label) {
			continue
		}
		matches := true
		for k, want := range filters {
			if got, ok := node.Properties[k]; !ok || got != want {
				matches = false
				break
			}
		}
		if matches {
			out = append(out, node)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemEntityStore) ListNodes(ctx context.Context, limit int) ([]*domain.Node, error) {
	return m.FindNodes(ctx, "", nil, limit)
}

func (m *MemEntityStore) UpdateNode(ctx context.Context, id string, attributes map[string]any) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range attributes {
		if !domain.IsProtectedProperty(k) {
			node.Properties[k] = v
		}
	}
	node.Properties[domain.PropModifiedDate] = time.Now().UTC().Format(time.RFC3339)
	return node, nil
}

func (m *MemEntityStore) DeleteNode(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.DeleteNodeErr[id]; ok {
		return err
	}
	if _, ok := m.nodes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.nodes, id)
	// Detach delete: incident relationships go with the node.
	for rid, rel := range m.rels {
		if rel.SourceUUID == id || rel.TargetUUID == id {
			delete(m.rels, rid)
		}
	}
	return nil
}

func (m *MemEntityStore) FindRelationship(ctx context.Context, id string) (*domain.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, ok := m.rels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rel, nil
}

func (m *MemEntityStore) UpdateRelationship(ctx context.Context, id string, attributes map[string]any) (*domain.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, ok := m.rels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range attributes {
		if !domain.IsProtectedProperty(k) {
			rel.Properties[k] = v
		}
	}
	return rel, nil
}

func (m *MemEntityStore) DeleteRelationship(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rels[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rels, id)
	return nil
}

func (m *MemEntityStore) OutgoingNodes(ctx context.Context, id, relType, label string) ([]*domain.Node, error) {
	return m.related(id, relType, label, true), nil
}

func (m *MemEntityStore) IncomingNodes(ctx context.Context, id, relType, label string) ([]*domain.Node, error) {
	return m.related(id, relType, label, false), nil
}

func (m *MemEntityStore) related(id, relType, label string, outgoing bool) []*domain.Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Node
	for _, rel := range m.rels {
		if rel.Type != relType {
			continue
		}
		var otherID string
		if outgoing && rel.SourceUUID == id {
			otherID = rel.TargetUUID
		} else if !outgoing && rel.TargetUUID == id {
			otherID = rel.SourceUUID
		} else {
			continue
		}
		node, ok := m.nodes[otherID]
		if !ok || (label != "" && !node.HasLabel(label)) {
			continue
		}
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InternalID < out[j].InternalID })
	return out
}

// Node returns a stored node directly, bypassing the store API.
func (m *MemEntityStore) Node(id string) *domain.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodes[id]
}

func (m *MemEntityStore) sortedNodesLocked() []*domain.Node {
	out := make([]*domain.Node, 0, len(m.nodes))
	for _, node := range m.nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InternalID < out[j].InternalID })
	return out
}

// MemUserRepo is an in-memory repository.UserRepository.
type MemUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by email
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: make(map[string]*domain.User)}
}

func (m *MemUserRepo) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return domain.ErrConflict
	}
	m.users[user.Email] = user
	return nil
}

func (m *MemUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (m *MemUserRepo) GetByUUID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UUID == id {
			return user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemUserRepo) UpdateLastSeen(ctx context.Context, id string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UUID == id {
			user.LastSeen = when
			return nil
		}
	}
	return domain.ErrNotFound
}

// MemBlob is an in-memory repository.BlobStorage with failure injection.
type MemBlob struct {
	mu    sync.Mutex
	files map[string][]byte

	// DeleteErr injects a failure for specific blob ids.
	DeleteErr map[string]error
}

func NewMemBlob() *MemBlob {
	return &MemBlob{files: make(map[string][]byte), DeleteErr: make(map[string]error)}
}

func (m *MemBlob) WriteFile(id string, r io.Reader, overwrite bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; ok && !overwrite {
		return 0, domain.ErrFileExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.files[id] = data
	return int64(len(data)), nil
}

func (m *MemBlob) ReadFile(id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemBlob) DeleteFile(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.DeleteErr[id]; ok {
		return err
	}
	if _, ok := m.files[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *MemBlob) ListFiles() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemBlob) Exists(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[id]
	return ok, nil
}

// Has reports whether a blob is present, for test assertions.
func (m *MemBlob) Has(id string) bool {
	ok, _ := m.Exists(id)
	return ok
}
