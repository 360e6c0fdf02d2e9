package visualizer

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/nextjs-cdk-example/infra/pkg/config"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
	"github.com/nextjs-cdk-example/infra/pkg/dot"
)

type Theme struct {
	Background string
	Font       string
	Cluster    string
	Edge       string
	Fills      map[string]string
}

var themes = map[string]Theme{
	config.ThemeLight: {
		Background: "#ffffff",
		Font:       "#232f3e",
		Cluster:    "#f2f3f3",
		Edge:       "#545b64",
		Fills: map[string]string{
			TagNetwork:  "#e7d8f7",
			TagCompute:  "#fde3cf",
			TagStorage:  "#d6f0d8",
			TagSecurity: "#fbd5d5",
			TagOther:    "#eaeded",
		},
	},
	config.ThemeDark: {
		Background: "#1b1f24",
		Font:       "#e6e6e6",
		Cluster:    "#2a3038",
		Edge:       "#9ba7b4",
		Fills: map[string]string{
			TagNetwork:  "#5a3d7a",
			TagCompute:  "#8a4b1f",
			TagStorage:  "#2f6b3a",
			TagSecurity: "#8c2f2f",
			TagOther:    "#414a54",
		},
	},
}

func ThemeFor(name string) (Theme, error) {
	t, ok := themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q", name)
	}
	return t, nil
}

func nodeAttributes(r *VisResource, theme Theme) map[string]string {
	label := r.ID.Name
	if r.CfnType != "" {
		label += "\n" + r.CfnType
	}
	return map[string]string{
		"label":     label,
		"fillcolor": theme.Fills[r.Tag],
		"tooltip":   r.ID.String(),
	}
}

// ToDot writes the graph as a DOT digraph with one cluster per stack. Stacks, nodes and edges are
// written in sorted order so the same graph always gives the same output.
func ToDot(g VisGraph, name, title string, theme Theme, out io.Writer) error {
	var errs error
	printf := func(s string, args ...any) {
		_, err := fmt.Fprintf(out, s, args...)
		errs = errors.Join(errs, err)
	}

	namespaces, err := construct.Namespaces(g)
	if err != nil {
		return err
	}
	ids, err := construct.SortedIds(g)
	if err != nil {
		return err
	}

	printf("digraph %s {\n", dot.Quote(name))
	printf("  label=%s\n", dot.Quote(title))
	printf("  labelloc=t\n")
	printf("  rankdir=TB\n")
	printf("  bgcolor=%s\n", dot.Quote(theme.Background))
	printf("  fontcolor=%s\n", dot.Quote(theme.Font))
	printf("  node%s\n", dot.AttributesToString(map[string]string{
		"shape":     "box",
		"style":     "rounded,filled",
		"fontcolor": theme.Font,
		"color":     theme.Edge,
	}))
	printf("  edge%s\n", dot.AttributesToString(map[string]string{"color": theme.Edge}))

	for _, ns := range namespaces {
		indent := "  "
		if ns != "" {
			printf("  subgraph %s {\n", dot.Quote("cluster_"+ns))
			printf("    label=%s\n", dot.Quote(ns))
			printf("    style=filled\n")
			printf("    color=%s\n", dot.Quote(theme.Cluster))
			indent = "    "
		}
		for _, id := range ids {
			if id.Namespace != ns {
				continue
			}
			r, err := g.Vertex(id)
			if err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			printf("%s%s%s\n", indent, dot.Quote(id.String()), dot.AttributesToString(nodeAttributes(r, theme)))
		}
		if ns != "" {
			printf("  }\n")
		}
	}

	edges, err := g.Edges()
	if err != nil {
		return errors.Join(errs, err)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return construct.ResourceIdLess(edges[i].Source, edges[j].Source)
		}
		return construct.ResourceIdLess(edges[i].Target, edges[j].Target)
	})
	for _, e := range edges {
		printf("  %s -> %s\n", dot.Quote(e.Source.String()), dot.Quote(e.Target.String()))
	}
	printf("}\n")
	return errs
}
