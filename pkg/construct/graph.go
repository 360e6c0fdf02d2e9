package construct

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

type (
	Graph = graph.Graph[ResourceId, *Resource]
	Edge  = graph.Edge[ResourceId]
)

func NewGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
	))
}

func Hash(g Graph) ([]byte, error) {
	sum := sha256.New()
	err := stringTo(g, sum)
	return sum.Sum(nil), err
}

func String(g Graph) (string, error) {
	w := new(strings.Builder)
	err := stringTo(g, w)
	return w.String(), err
}

func stringTo(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adjacent, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	for _, id := range topo {
		_, err := fmt.Fprintf(w, "%s\n", id)
		if err != nil {
			return err
		}

		for _, t := range SortedTargets(adjacent[id]) {
			// Adjacent edges always have `id` as the source, so just write the target.
			_, err := fmt.Fprintf(w, "-> %s\n", t)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SortedTargets returns the targets of an adjacency map entry sorted by id.
func SortedTargets(edges map[ResourceId]Edge) []ResourceId {
	targets := make([]ResourceId, 0, len(edges))
	for t := range edges {
		targets = append(targets, t)
	}
	sort.Sort(sortedIds(targets))
	return targets
}

// Namespaces returns the distinct namespaces (stacks) of the graph in sorted order.
func Namespaces[T any](g graph.Graph[ResourceId, T]) ([]string, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var namespaces []string
	for id := range adj {
		if _, ok := seen[id.Namespace]; ok {
			continue
		}
		seen[id.Namespace] = struct{}{}
		namespaces = append(namespaces, id.Namespace)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}
