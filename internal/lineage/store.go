// Package lineage records which accepted artifacts each artifact of a run
// was derived from.
package lineage

import (
	"context"
	"io"
)

// Store is the lineage graph backend.
// Implementations: KuzuStore (cgo builds), MemStore.
type Store interface {
	io.Closer

	// InitSchema prepares the backend; it is idempotent.
	InitSchema(ctx context.Context) error

	AddArtifact(ctx context.Context, node Node) error
	AddEdge(ctx context.Context, edge Edge) error

	// GetArtifact returns the node with id, or nil when absent.
	GetArtifact(ctx context.Context, id string) (*Node, error)

	// Trace walks FEEDS edges from id breadth-first. Upstream answers "what
	// was this derived from", downstream "what was derived from this".
	Trace(ctx context.Context, id string, dir Direction, maxDepth int) ([]Chain, error)

	// Snapshot returns every node and edge, nodes ordered by ID.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Node is one accepted artifact.
type Node struct {
	ID      string `json:"id"`
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Attempt int    `json:"attempt"`
}

// EdgeKind names a relationship between artifacts.
type EdgeKind string

// EdgeFeeds links an input artifact to an artifact generated from it.
const EdgeFeeds EdgeKind = "FEEDS"

// Edge is a directed relationship from SourceID to TargetID.
type Edge struct {
	SourceID string   `json:"source"`
	TargetID string   `json:"target"`
	Kind     EdgeKind `json:"kind"`
}

// Direction controls traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"
	DirectionDownstream Direction = "downstream"
)

// Chain is one path found by Trace, starting at the traced node.
type Chain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}

// Snapshot is a full copy of a lineage graph.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeID is the lineage identifier of a stage's accepted artifact in a run.
func NodeID(runID, stage string) string {
	return runID + "/" + stage
}

// Load copies a snapshot into store.
func Load(ctx context.Context, store Store, snap *Snapshot) error {
	for _, n := range snap.Nodes {
		if err := store.AddArtifact(ctx, n); err != nil {
			return err
		}
	}
	for _, e := range snap.Edges {
		if err := store.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// neighborFunc returns the immediate neighbors of id in one direction.
type neighborFunc func(id string) ([]string, error)

// bfs is the traversal shared by the store implementations.
func bfs(id string, maxDepth int, neighbors neighborFunc) ([]Chain, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	type entry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []entry{{path: []string{id}}}
	var chains []Chain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		nbs, err := neighbors(cur.path[len(cur.path)-1])
		if err != nil {
			return nil, err
		}
		for _, nb := range nbs {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			path := make([]string, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = nb
			chains = append(chains, Chain{Nodes: path, Depth: cur.depth + 1})
			queue = append(queue, entry{path: path, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendKuzu   = "kuzu"
)
