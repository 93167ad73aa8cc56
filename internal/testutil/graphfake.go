package testutil

import (
	"context"
	"sync"

	"github.com/obsidian-cms/obsidian/internal/graph"
)

// GraphCall records one statement issued to the fake graph, exactly as the
// store built it: query text plus the bound parameter map.
type GraphCall struct {
	Query  string
	Params map[string]any
}

// GraphResponse is one scripted result row set (or error) handed back in
// FIFO order, one per statement.
type GraphResponse struct {
	Records []graph.Record
	Err     error
}

// FakeGraph implements graph.Driver with scripted responses. It records
// every call so tests can assert on query text and bound parameters, and
// counts session opens/closes so tests can verify the scoped acquire/release
// discipline.
type FakeGraph struct {
	mu        sync.Mutex
	responses []GraphResponse

	Calls          []GraphCall
	SessionsOpened int
	SessionsClosed int
}

func NewFakeGraph(responses ...GraphResponse) *FakeGraph {
	return &FakeGraph{responses: responses}
}

// Enqueue appends a scripted response for the next statement.
func (g *FakeGraph) Enqueue(records []graph.Record, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, GraphResponse{Records: records, Err: err})
}

func (g *FakeGraph) Session(ctx context.Context) graph.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SessionsOpened++
	return &fakeSession{g: g}
}

func (g *FakeGraph) Close(ctx context.Context) error { return nil }

func (g *FakeGraph) run(query string, params map[string]any) ([]graph.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Calls = append(g.Calls, GraphCall{Query: query, Params: params})
	if len(g.responses) == 0 {
		return nil, nil
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	return next.Records, next.Err
}

type fakeSession struct {
	g *FakeGraph
}

func (s *fakeSession) Run(ctx context.Context, query string, params map[string]any) ([]graph.Record, error) {
	return s.g.run(query, params)
}

func (s *fakeSession) ExecuteWrite(ctx context.Context, fn func(tx graph.Tx) (any, error)) (any, error) {
	return fn(&fakeTx{g: s.g})
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	s.g.SessionsClosed++
	return nil
}

type fakeTx struct {
	g *FakeGraph
}

func (t *fakeTx) Run(ctx context.Context, query string, params map[string]any) ([]graph.Record, error) {
	return t.g.run(query, params)
}

// NodeRecord builds a single-row result containing one node under key.
func NodeRecord(key string, node graph.Node) []graph.Record {
	return []graph.Record{{key: node}}
}
