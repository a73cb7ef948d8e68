package lineage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]Node
	edges []Edge
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[string]Node)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }

// AddArtifact stores a node keyed by ID.
func (m *MemStore) AddArtifact(_ context.Context, node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.ID] = node
	return nil
}

// AddEdge appends an edge; both endpoints must already exist.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[edge.SourceID]; !ok {
		return fmt.Errorf("lineage: unknown source node %q", edge.SourceID)
	}
	if _, ok := m.nodes[edge.TargetID]; !ok {
		return fmt.Errorf("lineage: unknown target node %q", edge.TargetID)
	}
	m.edges = append(m.edges, edge)
	return nil
}

// GetArtifact returns the node with id, or nil.
func (m *MemStore) GetArtifact(_ context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// Trace walks FEEDS edges from id.
func (m *MemStore) Trace(_ context.Context, id string, dir Direction, maxDepth int) ([]Chain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return bfs(id, maxDepth, func(cur string) ([]string, error) {
		var out []string
		for _, e := range m.edges {
			switch dir {
			case DirectionUpstream:
				if e.TargetID == cur {
					out = append(out, e.SourceID)
				}
			case DirectionDownstream:
				if e.SourceID == cur {
					out = append(out, e.TargetID)
				}
			default:
				return nil, fmt.Errorf("lineage: unknown direction: %s", dir)
			}
		}
		sort.Strings(out)
		return out, nil
	})
}

// Snapshot copies all nodes (sorted by ID) and edges (insertion order).
func (m *MemStore) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := &Snapshot{
		Nodes: make([]Node, 0, len(m.nodes)),
		Edges: append([]Edge(nil), m.edges...),
	}
	for _, n := range m.nodes {
		snap.Nodes = append(snap.Nodes, n)
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].ID < snap.Nodes[j].ID })
	return snap, nil
}
