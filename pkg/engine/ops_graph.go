package engine

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// MemoryGraph is memory_graph: association-graph traversal (connected
// neighbors, shortest path between two hashes, or a bounded subgraph
// around one hash), all built on ListAssociations' bounded BFS.
func (e *Engine) MemoryGraph(ctx context.Context, req GraphRequest) (GraphResponse, error) {
	switch req.Action {
	case GraphConnected:
		return e.graphConnected(ctx, req)
	case GraphPath:
		return e.graphPath(ctx, req)
	case GraphSubgraph:
		return e.graphSubgraph(ctx, req)
	default:
		return GraphResponse{}, fmt.Errorf("%w: unknown graph action %q", errs.ErrInvalidArgument, req.Action)
	}
}

func (e *Engine) graphConnected(ctx context.Context, req GraphRequest) (GraphResponse, error) {
	if req.Hash == "" {
		return GraphResponse{}, fmt.Errorf("%w: hash is required", errs.ErrInvalidArgument)
	}
	maxHops := req.MaxHops
	if maxHops <= 0 {
		maxHops = 1
	}
	adjacency, err := e.store.ListAssociations(ctx, req.Hash, maxHops)
	if err != nil {
		return GraphResponse{}, err
	}
	return GraphResponse{Edges: adjacencyToEdges(adjacency)}, nil
}

func (e *Engine) graphSubgraph(ctx context.Context, req GraphRequest) (GraphResponse, error) {
	if req.Hash == "" {
		return GraphResponse{}, fmt.Errorf("%w: hash is required", errs.ErrInvalidArgument)
	}
	radius := req.Radius
	if radius <= 0 {
		radius = req.MaxDepth
	}
	if radius <= 0 {
		radius = 2
	}
	adjacency, err := e.store.ListAssociations(ctx, req.Hash, radius)
	if err != nil {
		return GraphResponse{}, err
	}
	return GraphResponse{Edges: adjacencyToEdges(adjacency)}, nil
}

// graphPath performs BFS over the bounded adjacency ListAssociations
// already computes from hash1, looking for hash2 within max_hops, and
// reconstructs the shortest path found. Returns an empty Path if hash2 is
// unreachable within max_hops.
func (e *Engine) graphPath(ctx context.Context, req GraphRequest) (GraphResponse, error) {
	if req.Hash1 == "" || req.Hash2 == "" {
		return GraphResponse{}, fmt.Errorf("%w: hash1 and hash2 are required", errs.ErrInvalidArgument)
	}
	maxHops := req.MaxHops
	if maxHops <= 0 {
		maxHops = 6
	}
	adjacency, err := e.store.ListAssociations(ctx, req.Hash1, maxHops)
	if err != nil {
		return GraphResponse{}, err
	}
	if req.Hash1 == req.Hash2 {
		return GraphResponse{Path: []string{req.Hash1}}, nil
	}

	parent := map[string]string{req.Hash1: ""}
	queue := []string{req.Hash1}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == req.Hash2 {
			break
		}
		for _, assoc := range adjacency[cur] {
			next := assoc.HashB
			if next == cur {
				next = assoc.HashA
			}
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			queue = append(queue, next)
		}
	}
	if _, ok := parent[req.Hash2]; !ok {
		return GraphResponse{Edges: adjacencyToEdges(adjacency)}, nil
	}

	var path []string
	for h := req.Hash2; h != ""; h = parent[h] {
		path = append([]string{h}, path...)
		if h == req.Hash1 {
			break
		}
	}
	return GraphResponse{Edges: adjacencyToEdges(adjacency), Path: path}, nil
}

func adjacencyToEdges(adjacency map[string][]store.Association) []GraphEdge {
	seen := make(map[[2]string]bool)
	var edges []GraphEdge
	for _, assocs := range adjacency {
		for _, a := range assocs {
			ha, hb := store.NormalizePair(a.HashA, a.HashB)
			key := [2]string{ha, hb}
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, GraphEdge{HashA: ha, HashB: hb, Strength: a.Strength, Reason: a.Reason})
		}
	}
	return edges
}
