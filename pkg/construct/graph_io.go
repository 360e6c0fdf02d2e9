package construct

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

type SimpleEdge struct {
	Source ResourceId
	Target ResourceId
}

func (e SimpleEdge) String() string {
	return fmt.Sprintf("%s -> %s", e.Source, e.Target)
}

func (e SimpleEdge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *SimpleEdge) UnmarshalText(data []byte) error {
	s := string(data)

	source, target, found := strings.Cut(s, " -> ")
	if !found {
		target, source, found = strings.Cut(s, " <- ")
		if !found {
			return errors.New("invalid edge format, expected either `source -> target` or `target <- source`")
		}
	}

	srcErr := e.Source.UnmarshalText([]byte(source))
	tgtErr := e.Target.UnmarshalText([]byte(target))
	return errors.Join(srcErr, tgtErr)
}

// GraphToYAML renders the graph `g` as YAML to `w`.
func GraphToYAML(g Graph, w io.Writer) (errs error) {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}

	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	// Write the yaml explicitly so we can control the order of the keys
	// for resources and the edges.

	write := func(s string, args ...interface{}) {
		_, err := fmt.Fprintf(w, s, args...)
		errs = errors.Join(errs, err)
	}
	writeln := func(s string, args ...interface{}) {
		write(s+"\n", args...)
	}

	writeln("resources:")
	for _, rid := range topo {
		writeln("  %s:", rid)

		r, err := g.Vertex(rid)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if r.CfnType != "" {
			writeln("    type: %s", r.CfnType)
		}
		if r.Path != "" {
			writeln("    path: %s", r.Path)
		}
	}

	writeln("edges:")
	for _, source := range topo {
		for _, target := range SortedTargets(adj[source]) {
			writeln("  %s -> %s:", source, target)
		}
	}

	return
}
