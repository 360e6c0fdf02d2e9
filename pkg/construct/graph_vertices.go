package construct

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// TopologicalSort provides a stable topological ordering of resource IDs.
// This is a modified implementation of graph.StableTopologicalSort that tolerates cycles by
// picking a deterministic vertex whenever no vertex is free of predecessors.
func TopologicalSort[T any](g graph.Graph[ResourceId, T]) ([]ResourceId, error) {
	if !g.Traits().IsDirected {
		return nil, fmt.Errorf("topological sort cannot be computed on undirected graph")
	}

	predecessorMap, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get predecessor map: %w", err)
	}

	if len(predecessorMap) == 0 {
		return nil, nil
	}

	queue := make([]ResourceId, 0)
	queued := make(map[ResourceId]struct{})
	enqueue := func(vs ...ResourceId) {
		for _, vertex := range vs {
			queue = append(queue, vertex)
			queued[vertex] = struct{}{}
		}
	}

	for vertex, predecessors := range predecessorMap {
		if len(predecessors) == 0 {
			enqueue(vertex)
		}
	}

	// enqueueArbitrary enqueues an arbitrary but deterministic id from the remaining unvisited ids.
	// It should only be used if len(queue) == 0 && len(predecessorMap) > 0
	enqueueArbitrary := func() {
		remainingIds := make([]ResourceId, 0, len(predecessorMap))
		for vertex := range predecessorMap {
			remainingIds = append(remainingIds, vertex)
		}
		sort.Slice(remainingIds, func(i, j int) bool {
			iPcount := len(predecessorMap[remainingIds[i]])
			jPcount := len(predecessorMap[remainingIds[j]])
			if iPcount != jPcount {
				return iPcount < jPcount
			}
			return ResourceIdLess(remainingIds[i], remainingIds[j])
		})
		enqueue(remainingIds[0])
	}

	if len(queue) == 0 {
		enqueueArbitrary()
	}

	order := make([]ResourceId, 0, len(predecessorMap))
	visited := make(map[ResourceId]struct{})

	sort.Sort(sortedIds(queue))

	for len(queue) > 0 {
		currentVertex := queue[0]
		queue = queue[1:]

		if _, ok := visited[currentVertex]; ok {
			continue
		}

		order = append(order, currentVertex)
		visited[currentVertex] = struct{}{}
		delete(predecessorMap, currentVertex)

		frontier := make([]ResourceId, 0)

		for vertex, predecessors := range predecessorMap {
			delete(predecessors, currentVertex)

			if len(predecessors) != 0 {
				continue
			}

			if _, ok := queued[vertex]; ok {
				continue
			}

			frontier = append(frontier, vertex)
		}

		sort.Sort(sortedIds(frontier))

		enqueue(frontier...)

		if len(queue) == 0 && len(predecessorMap) > 0 {
			enqueueArbitrary()
		}
	}

	return order, nil
}

func reverseInplace[E any](a []E) {
	for i := 0; i < len(a)/2; i++ {
		a[i], a[len(a)-i-1] = a[len(a)-i-1], a[i]
	}
}

// ReverseTopologicalSort is like TopologicalSort, but returns the reverse order: every resource
// comes after the resources it references.
func ReverseTopologicalSort[T any](g graph.Graph[ResourceId, T]) ([]ResourceId, error) {
	topo, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	reverseInplace(topo)
	return topo, nil
}

// SortedIds returns every vertex of the graph sorted by id content, independent of edges.
func SortedIds[T any](g graph.Graph[ResourceId, T]) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	ids := make([]ResourceId, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	sort.Sort(sortedIds(ids))
	return ids, nil
}
