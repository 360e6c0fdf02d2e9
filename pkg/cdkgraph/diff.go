package cdkgraph

import (
	"sort"
	"strings"

	"github.com/nextjs-cdk-example/infra/pkg/construct"
	pkgerrors "github.com/pkg/errors"
	"github.com/r3labs/diff"
)

// snapshot flattens a graph into plain maps so it can be compared structurally.
func snapshot(g construct.Graph) (map[string]any, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	resources := make(map[string]any, len(adj))
	edges := make(map[string]any)
	for id, targets := range adj {
		r, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		props := make(map[string]any, len(r.Properties))
		for k, v := range r.Properties {
			props[k] = v
		}
		resources[id.String()] = map[string]any{
			"type":       r.CfnType,
			"path":       r.Path,
			"properties": props,
		}
		for target := range targets {
			edges[construct.SimpleEdge{Source: id, Target: target}.String()] = true
		}
	}
	return map[string]any{
		"resources": resources,
		"edges":     edges,
	}, nil
}

// Diff compares two resource graphs: their resources, properties and edges. The returned
// changes are sorted by path. Identical graphs give an empty changelog.
func Diff(before, after construct.Graph) (diff.Changelog, error) {
	a, err := snapshot(before)
	if err != nil {
		return nil, err
	}
	b, err := snapshot(after)
	if err != nil {
		return nil, err
	}

	differ, err := diff.NewDiffer(diff.SliceOrdering(false))
	if err != nil {
		return nil, err
	}
	changes, err := differ.Diff(a, b)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "could not diff graphs")
	}
	sort.SliceStable(changes, func(i, j int) bool {
		pi, pj := strings.Join(changes[i].Path, "."), strings.Join(changes[j].Path, ".")
		if pi != pj {
			return pi < pj
		}
		return changes[i].Type < changes[j].Type
	})
	return changes, nil
}
