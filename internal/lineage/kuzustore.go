//go:build cgo

package lineage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store on KuzuDB. It requires CGO because the go-kuzu
// driver wraps KuzuDB's C library. A single connection is shared, so calls
// are serialized.
type KuzuStore struct {
	mu   sync.Mutex
	db   *kuzu.Database
	conn *kuzu.Connection
}

var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory database.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore persisted at dbPath. KuzuDB creates
// the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the connection and database.
func (s *KuzuStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Artifact(
		id STRING,
		run_id STRING,
		stage STRING,
		kind STRING,
		attempt INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS FEEDS(FROM Artifact TO Artifact)`,
}

// InitSchema creates the node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// AddArtifact inserts an Artifact node.
func (s *KuzuStore) AddArtifact(_ context.Context, node Node) error {
	return s.exec(
		"CREATE (a:Artifact {id: $id, run_id: $run, stage: $stage, kind: $kind, attempt: $attempt})",
		map[string]any{
			"id":      node.ID,
			"run":     node.RunID,
			"stage":   node.Stage,
			"kind":    node.Kind,
			"attempt": int64(node.Attempt),
		},
	)
}

// AddEdge inserts a FEEDS relationship.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	if edge.Kind != EdgeFeeds {
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	return s.exec(
		`MATCH (a:Artifact {id: $src}), (b:Artifact {id: $dst})
		 CREATE (a)-[:FEEDS]->(b)`,
		map[string]any{"src": edge.SourceID, "dst": edge.TargetID},
	)
}

// GetArtifact returns the node with id, or nil.
func (s *KuzuStore) GetArtifact(_ context.Context, id string) (*Node, error) {
	rows, err := s.query(
		"MATCH (a:Artifact {id: $id}) RETURN a.id, a.run_id, a.stage, a.kind, a.attempt",
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	n := rowToNode(rows[0])
	return &n, nil
}

// Trace walks FEEDS edges from id breadth-first.
func (s *KuzuStore) Trace(_ context.Context, id string, dir Direction, maxDepth int) ([]Chain, error) {
	var cypher string
	switch dir {
	case DirectionDownstream:
		cypher = "MATCH (a:Artifact {id: $id})-[:FEEDS]->(b:Artifact) RETURN b.id ORDER BY b.id"
	case DirectionUpstream:
		cypher = "MATCH (a:Artifact)-[:FEEDS]->(b:Artifact {id: $id}) RETURN a.id ORDER BY a.id"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	return bfs(id, maxDepth, func(cur string) ([]string, error) {
		rows, err := s.query(cypher, map[string]any{"id": cur})
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, toString(r[0]))
		}
		return out, nil
	})
}

// Snapshot returns every node ordered by ID and every edge.
func (s *KuzuStore) Snapshot(_ context.Context) (*Snapshot, error) {
	rows, err := s.query(
		"MATCH (a:Artifact) RETURN a.id, a.run_id, a.stage, a.kind, a.attempt ORDER BY a.id", nil)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Nodes: make([]Node, 0, len(rows))}
	for _, r := range rows {
		snap.Nodes = append(snap.Nodes, rowToNode(r))
	}

	rows, err = s.query(
		"MATCH (a:Artifact)-[:FEEDS]->(b:Artifact) RETURN a.id, b.id ORDER BY a.id, b.id", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		snap.Edges = append(snap.Edges, Edge{SourceID: toString(r[0]), TargetID: toString(r[1]), Kind: EdgeFeeds})
	}
	return snap, nil
}

// exec runs a parameterized statement that returns no rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a statement and collects all rows in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res *kuzu.QueryResult
	var err error
	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func rowToNode(r []any) Node {
	return Node{
		ID:      toString(r[0]),
		RunID:   toString(r[1]),
		Stage:   toString(r[2]),
		Kind:    toString(r[3]),
		Attempt: toInt(r[4]),
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	default:
		return 0
	}
}
