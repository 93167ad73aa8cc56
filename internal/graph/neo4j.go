package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Connect opens a Neo4j driver and verifies connectivity before returning.
func Connect(ctx context.Context, uri, username, password string) (Driver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify connectivity: %w", err)
	}
	return &neoDriver{driver: d}, nil
}

type neoDriver struct {
	driver neo4j.DriverWithContext
}

func (d *neoDriver) Session(ctx context.Context) Session {
	return &neoSession{session: d.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

func (d *neoDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

type neoSession struct {
	session neo4j.SessionWithContext
}

func (s *neoSession) Run(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	result, err := s.session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return convertRecords(records), nil
}

func (s *neoSession) ExecuteWrite(ctx context.Context, fn func(tx Tx) (any, error)) (any, error) {
	return s.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return fn(&neoTx{tx: tx})
	})
}

func (s *neoSession) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}

type neoTx struct {
	tx neo4j.ManagedTransaction
}

func (t *neoTx) Run(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return convertRecords(records), nil
}

func convertRecords(records []*neo4j.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = convertValue(rec.Values[i])
		}
		out = append(out, row)
	}
	return out
}

// convertValue translates driver entity types into the package's own value
// types so driver imports stay out of the repositories.
func convertValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return Node{ID: val.Id, Labels: val.Labels, Props: val.Props}
	case dbtype.Relationship:
		return Relationship{
			ID:      val.Id,
			Type:    val.Type,
			StartID: val.StartId,
			EndID:   val.EndId,
			Props:   val.Props,
		}
	default:
		return v
	}
}
