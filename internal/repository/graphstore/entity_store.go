// Package graphstore implements the repository interfaces on top of the
// graph session abstraction.
//
// Caller-supplied values are always bound as query parameters. Labels and
// relationship types cannot be parameterized in Cypher, so they are
// validated against a strict identifier syntax and the configured allow and
// deny lists before being spliced into query text.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/graph"
)

// OwnsRelationship connects a creator to every node created on their behalf.
const OwnsRelationship = "OWNS"

var identifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Config carries the label and relationship policy, fixed at startup.
type Config struct {
	// RestrictedLabels can never be created through the store.
	RestrictedLabels []string
	// Restrict enables the allow lists below.
	Restrict             bool
	AllowedLabels        []string
	AllowedRelationships []string
}

type Store struct {
	driver      graph.Driver
	restricted  map[string]struct{}
	restrict    bool
	allowLabels map[string]struct{}
	allowRels   map[string]struct{}
}

func NewStore(driver graph.Driver, cfg Config) *Store {
	return &Store{
		driver:      driver,
		restricted:  toSet(cfg.RestrictedLabels),
		restrict:    cfg.Restrict,
		allowLabels: toSet(cfg.AllowedLabels),
		allowRels:   toSet(cfg.AllowedRelationships),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (s *Store) CreateNode(ctx context.Context, label string, attributes map[string]any, createdBy *domain.User) (*domain.Node, error) {
	if err := s.checkCreateLabel(label); err != nil {
		return nil, err
	}
	if err := checkAttributes(attributes); err != nil {
		return nil, err
	}

	props := make(map[string]any, len(attributes)+6)
	for k, v := range attributes {
		props[k] = v
	}
	now := timestamp()
	props[domain.PropUUID] = uuid.NewString()
	props[domain.PropCreatedDate] = now
	props[domain.PropModifiedDate] = now
	if createdBy != nil {
		props[domain.PropCreator] = createdBy.UUID
		props[domain.PropOwner] = createdBy.UUID
	}

	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx graph.Tx) (any, error) {
		records, err := tx.Run(ctx, "CREATE (n:"+label+" $props) RETURN n", map[string]any{"props": props})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, errors.New("create returned no record")
		}
		node, err := nodeFrom(records[0], "n")
		if err != nil {
			return nil, err
		}

		if createdBy != nil {
			owns, err := tx.Run(ctx,
				"MATCH (u:User {UUID: $owner}) MATCH (n {UUID: $uuid}) "+
					"CREATE (u)-[r:"+OwnsRelationship+" $props]->(n) RETURN r",
				map[string]any{
					"owner": createdBy.UUID,
					"uuid":  node.UUID,
					"props": map[string]any{
						domain.PropUUID:        uuid.NewString(),
						domain.PropCreatedDate: now,
					},
				})
			if err != nil {
				return nil, err
			}
			if len(owns) == 0 {
				return nil, fmt.Errorf("%w: creator %s", domain.ErrNotFound, createdBy.UUID)
			}
		}
		return node, nil
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return result.(*domain.Node), nil
}

func (s *Store) CreateRelationship(ctx context.Context, source, target domain.Match, relType string, attributes map[string]any, createdBy *domain.User) (*domain.Relationship, error) {
	if err := s.checkRelType(relType); err != nil {
		return nil, err
	}
	if err := checkAttributes(attributes); err != nil {
		return nil, err
	}

	props := make(map[string]any, len(attributes)+3)
	for k, v := range attributes {
		props[k] = v
	}
	props[domain.PropUUID] = uuid.NewString()
	props[domain.PropCreatedDate] = timestamp()
	if createdBy != nil {
		props[domain.PropCreator] = createdBy.UUID
	}

	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx graph.Tx) (any, error) {
		sourceUUID, err := resolveOne(ctx, tx, source)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		targetUUID, err := resolveOne(ctx, tx, target)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}

		records, err := tx.Run(ctx,
			"MATCH (a {UUID: $source}) MATCH (b {UUID: $target}) "+
				"CREATE (a)-[r:"+relType+" $props]->(b) RETURN r",
			map[string]any{"source": sourceUUID, "target": targetUUID, "props": props})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, errors.New("create returned no record")
		}
		return relationshipFrom(records[0], "r", sourceUUID, targetUUID)
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return result.(*domain.Relationship), nil
}

// resolveOne finds the single node matching m, failing with ErrNotFound or
// ErrAmbiguous otherwise.
func resolveOne(ctx context.Context, tx graph.Tx, m domain.Match) (string, error) {
	if m.Property == "" {
		return "", fmt.Errorf("%w: match property is required", domain.ErrValidation)
	}
	match := "MATCH (n)"
	if m.Label != "" {
		if err := checkIdentifier(m.Label); err != nil {
			return "", err
		}
		match = "MATCH (n:" + m.Label + ")"
	}

	records, err := tx.Run(ctx,
		match+" WHERE n[$property] = $value RETURN n.UUID AS uuid LIMIT 2",
		map[string]any{"property": m.Property, "value": m.Value})
	if err != nil {
		return "", err
	}
	switch len(records) {
	case 0:
		return "", fmt.Errorf("%w: no node with %s = %v", domain.ErrNotFound, m.Property, m.Value)
	case 1:
		uid, _ := records[0]["uuid"].(string)
		return uid, nil
	default:
		return "", fmt.Errorf("%w: %s = %v", domain.ErrAmbiguous, m.Property, m.Value)
	}
}

func (s *Store) FindNode(ctx context.Context, label string, filters map[string]any) (*domain.Node, error) {
	nodes, err := s.FindNodes(ctx, label, filters, 1)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, domain.ErrNotFound
	}
	return nodes[0], nil
}

func (s *Store) FindNodes(ctx context.Context, label string, filters map[string]any, limit int) ([]*domain.Node, error) {
	match := "MATCH (n)"
	if label != "" {
		if err := checkIdentifier(label); err != nil {
			return nil, err
		}
		match = "MATCH (n:" + label + ")"
	}

	params := map[string]any{"limit": clampLimit(limit)}
	var conditions []string
	for i, key := range sortedKeys(filters) {
		kp := fmt.Sprintf("key%d", i)
		vp := fmt.Sprintf("value%d", i)
		conditions = append(conditions, fmt.Sprintf("n[$%s] = $%s", kp, vp))
		params[kp] = key
		params[vp] = filters[key]
	}

	query := match
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " RETURN n ORDER BY id(n) LIMIT $limit"

	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return nodesFrom(records, "n")
}

func (s *Store) ListNodes(ctx context.Context, limit int) ([]*domain.Node, error) {
	return s.FindNodes(ctx, "", nil, limit)
}

func (s *Store) UpdateNode(ctx context.Context, nodeUUID string, attributes map[string]any) (*domain.Node, error) {
	attrs := stripProtected(attributes)
	attrs[domain.PropModifiedDate] = timestamp()

	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		"MATCH (n {UUID: $uuid}) SET n += $attrs RETURN n",
		map[string]any{"uuid": nodeUUID, "attrs": attrs})
	if err != nil {
		return nil, wrapStorage(err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return nodeFrom(records[0], "n")
}

func (s *Store) DeleteNode(ctx context.Context, nodeUUID string) error {
	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		"MATCH (n {UUID: $uuid}) WITH n, n.UUID AS uuid DETACH DELETE n RETURN uuid",
		map[string]any{"uuid": nodeUUID})
	if err != nil {
		return wrapStorage(err)
	}
	if len(records) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) FindRelationship(ctx context.Context, relUUID string) (*domain.Relationship, error) {
	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		"MATCH (a)-[r {UUID: $uuid}]->(b) RETURN r, a.UUID AS source, b.UUID AS target",
		map[string]any{"uuid": relUUID})
	if err != nil {
		return nil, wrapStorage(err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return relationshipFromRecord(records[0])
}

func (s *Store) UpdateRelationship(ctx context.Context, relUUID string, attributes map[string]any) (*domain.Relationship, error) {
	attrs := stripProtected(attributes)
	attrs[domain.PropModifiedDate] = timestamp()

	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		"MATCH (a)-[r {UUID: $uuid}]->(b) SET r += $attrs RETURN r, a.UUID AS source, b.UUID AS target",
		map[string]any{"uuid": relUUID, "attrs": attrs})
	if err != nil {
		return nil, wrapStorage(err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return relationshipFromRecord(records[0])
}

func (s *Store) DeleteRelationship(ctx context.Context, relUUID string) error {
	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		"MATCH ()-[r {UUID: $uuid}]->() WITH r, r.UUID AS uuid DELETE r RETURN uuid",
		map[string]any{"uuid": relUUID})
	if err != nil {
		return wrapStorage(err)
	}
	if len(records) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) OutgoingNodes(ctx context.Context, nodeUUID, relType, label string) ([]*domain.Node, error) {
	return s.relatedNodes(ctx, nodeUUID, relType, label, true)
}

func (s *Store) IncomingNodes(ctx context.Context, nodeUUID, relType, label string) ([]*domain.Node, error) {
	return s.relatedNodes(ctx, nodeUUID, relType, label, false)
}

func (s *Store) relatedNodes(ctx context.Context, nodeUUID, relType, label string, outgoing bool) ([]*domain.Node, error) {
	if err := checkIdentifier(relType); err != nil {
		return nil, err
	}
	other := "(n)"
	if label != "" {
		if err := checkIdentifier(label); err != nil {
			return nil, err
		}
		other = "(n:" + label + ")"
	}

	var pattern string
	if outgoing {
		pattern = "MATCH (a {UUID: $uuid})-[:" + relType + "]->" + other
	} else {
		pattern = "MATCH " + other + "-[:" + relType + "]->(a {UUID: $uuid})"
	}

	session := s.driver.Session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx,
		pattern+" RETURN n ORDER BY id(n)",
		map[string]any{"uuid": nodeUUID})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return nodesFrom(records, "n")
}

// checkCreateLabel enforces the creation policy: valid identifier, not on
// the restricted list and, when allow-listing is on, explicitly allowed.
func (s *Store) checkCreateLabel(label string) error {
	if err := checkIdentifier(label); err != nil {
		return err
	}
	if _, ok := s.restricted[label]; ok {
		return fmt.Errorf("%w: cannot create %s nodes with this method", domain.ErrPolicyViolation, label)
	}
	if s.restrict {
		if _, ok := s.allowLabels[label]; !ok {
			return fmt.Errorf("%w: label %s is not allowed", domain.ErrPolicyViolation, label)
		}
	}
	return nil
}

func (s *Store) checkRelType(relType string) error {
	if err := checkIdentifier(relType); err != nil {
		return err
	}
	if s.restrict {
		if _, ok := s.allowRels[relType]; !ok {
			return fmt.Errorf("%w: relationship type %s is not allowed", domain.ErrPolicyViolation, relType)
		}
	}
	return nil
}

func checkIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%w: invalid identifier %q", domain.ErrValidation, name)
	}
	return nil
}

func checkAttributes(attributes map[string]any) error {
	for key := range attributes {
		if domain.IsProtectedProperty(key) {
			return fmt.Errorf("%w: property %s is set by the store", domain.ErrPolicyViolation, key)
		}
	}
	return nil
}

func stripProtected(attributes map[string]any) map[string]any {
	clean := make(map[string]any, len(attributes))
	for k, v := range attributes {
		if !domain.IsProtectedProperty(k) {
			clean[k] = v
		}
	}
	return clean
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const (
	defaultLimit = 25
	maxLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// wrapStorage hides driver errors behind ErrStorage while letting domain
// sentinels pass through untouched.
func wrapStorage(err error) error {
	for _, sentinel := range []error{
		domain.ErrNotFound, domain.ErrAmbiguous, domain.ErrValidation,
		domain.ErrPolicyViolation, domain.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}

func nodeFrom(record graph.Record, key string) (*domain.Node, error) {
	raw, ok := record[key].(graph.Node)
	if !ok {
		return nil, fmt.Errorf("record %q is not a node", key)
	}
	uid, _ := raw.Props[domain.PropUUID].(string)
	return &domain.Node{
		InternalID: raw.ID,
		UUID:       uid,
		Labels:     raw.Labels,
		Properties: raw.Props,
	}, nil
}

func nodesFrom(records []graph.Record, key string) ([]*domain.Node, error) {
	nodes := make([]*domain.Node, 0, len(records))
	for _, record := range records {
		node, err := nodeFrom(record, key)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func relationshipFrom(record graph.Record, key, sourceUUID, targetUUID string) (*domain.Relationship, error) {
	raw, ok := record[key].(graph.Relationship)
	if !ok {
		return nil, fmt.Errorf("record %q is not a relationship", key)
	}
	uid, _ := raw.Props[domain.PropUUID].(string)
	return &domain.Relationship{
		InternalID: raw.ID,
		UUID:       uid,
		Type:       raw.Type,
		SourceUUID: sourceUUID,
		TargetUUID: targetUUID,
		Properties: raw.Props,
	}, nil
}

func relationshipFromRecord(record graph.Record) (*domain.Relationship, error) {
	source, _ := record["source"].(string)
	target, _ := record["target"].(string)
	return relationshipFrom(record, "r", source, target)
}
