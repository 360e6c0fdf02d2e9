package cdkgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
)

const (
	FilterNone    = "none"
	FilterCompact = "compact"
)

// Filter derives the graph a diagram shows from the full resource graph.
type Filter func(construct.Graph) (construct.Graph, error)

// FilterFor returns the filter preset with the given name. An empty name means FilterNone.
func FilterFor(name string) (Filter, error) {
	switch name {
	case FilterNone, "":
		return NoFilter, nil
	case FilterCompact:
		return Compact, nil
	default:
		return nil, fmt.Errorf("unknown filter preset %q (must be %s or %s)", name, FilterNone, FilterCompact)
	}
}

func NoFilter(g construct.Graph) (construct.Graph, error) {
	return g, nil
}

// constructKey returns the stack and top-level construct id a resource belongs to, taken
// from the construct path (`NetworkStack/Vpc/PublicSubnetSubnet1/Subnet` is `Vpc`).
// Resources without a path stand for themselves.
func constructKey(r *construct.Resource) (stack, name string) {
	parts := strings.Split(r.Path, "/")
	if r.Path == "" || len(parts) < 2 {
		return r.ID.Namespace, r.ID.Name
	}
	return r.ID.Namespace, parts[1]
}

// primaryLess orders the resources of one construct: the shallowest path first, then the
// construct's default child (`.../Resource`), then by path.
func primaryLess(a, b *construct.Resource) bool {
	da, db := strings.Count(a.Path, "/"), strings.Count(b.Path, "/")
	if da != db {
		return da < db
	}
	ra, rb := strings.HasSuffix(a.Path, "/Resource"), strings.HasSuffix(b.Path, "/Resource")
	if ra != rb {
		return ra
	}
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	return construct.ResourceIdLess(a.ID, b.ID)
}

// Compact collapses every resource into its top-level construct: all the subnets, routes
// and gateways of a VPC become the single `Vpc` node. The collapsed node is typed after the
// construct's primary resource. Edges between resources of the same construct are dropped.
func Compact(g construct.Graph) (construct.Graph, error) {
	ids, err := construct.SortedIds(g)
	if err != nil {
		return nil, err
	}

	type key struct{ stack, name string }
	primary := make(map[key]*construct.Resource)
	groupOf := make(map[construct.ResourceId]key, len(ids))
	var order []key

	for _, id := range ids {
		r, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		stack, name := constructKey(r)
		k := key{stack, name}
		groupOf[id] = k
		current, seen := primary[k]
		if !seen {
			order = append(order, k)
		}
		if !seen || primaryLess(r, current) {
			primary[k] = r
		}
	}

	compacted := construct.NewGraph()
	compactIds := make(map[key]construct.ResourceId, len(order))
	var errs error
	for _, k := range order {
		p := primary[k]
		id := p.ID
		id.Name = k.name
		compactIds[k] = id

		r := construct.CreateResource(id, p.CfnType)
		if p.Path != "" {
			r.Path = k.stack + "/" + k.name
		}
		for pk, pv := range p.Properties {
			r.Properties[pk] = pv
		}
		errs = errors.Join(errs, compacted.AddVertex(r))
	}
	if errs != nil {
		return nil, errs
	}

	edges, err := g.Edges()
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		source, target := compactIds[groupOf[e.Source]], compactIds[groupOf[e.Target]]
		if source == target {
			continue
		}
		err := compacted.AddEdge(source, target)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			errs = errors.Join(errs, err)
		}
	}
	return compacted, errs
}
