// Package graph is the session/transaction abstraction over the underlying
// graph database. The rest of the codebase depends only on the interfaces
// here; the driver itself is confined to the neo4j adapter.
//
// Hard contract: query parameters are always passed through the params map
// and bound by the driver. Caller-supplied values are never interpolated
// into query text.
package graph

import "context"

// Record is one result row, keyed by the identifiers in the RETURN clause.
type Record map[string]any

// Node is a raw graph node as returned by the database.
type Node struct {
	ID     int64
	Labels []string
	Props  map[string]any
}

// Relationship is a raw directed edge as returned by the database.
type Relationship struct {
	ID      int64
	Type    string
	StartID int64
	EndID   int64
	Props   map[string]any
}

// Tx runs statements inside a single write transaction. If any statement
// fails the whole transaction rolls back and no partial state is visible.
type Tx interface {
	Run(ctx context.Context, query string, params map[string]any) ([]Record, error)
}

// Session is one scoped unit of work. Callers acquire a session, perform
// their reads and writes within it, and close it on every exit path.
type Session interface {
	// Run executes a single auto-commit statement.
	Run(ctx context.Context, query string, params map[string]any) ([]Record, error)

	// ExecuteWrite runs fn inside one write transaction.
	ExecuteWrite(ctx context.Context, fn func(tx Tx) (any, error)) (any, error)

	Close(ctx context.Context) error
}

// Driver hands out sessions. Implementations must be safe for concurrent use.
type Driver interface {
	Session(ctx context.Context) Session
	Close(ctx context.Context) error
}
