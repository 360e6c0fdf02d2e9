package graphtest

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
	"github.com/stretchr/testify/assert"
)

func AssertGraphEqual(t *testing.T, expect, actual construct.Graph, message string, args ...any) {
	assert := assert.New(t)
	must := func(v any, err error) any {
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	msg := func(subMessage string) []any {
		if message == "" {
			return []any{subMessage}
		}
		return append([]any{message + ": " + subMessage}, args...)
	}

	assert.Equal(must(expect.Order()), must(actual.Order()), msg("order (# of nodes) mismatch")...)
	assert.Equal(must(expect.Size()), must(actual.Size()), msg("size (# of edges) mismatch")...)

	// Use the string representation to compare the graphs so that the diffs are nicer
	eStr := must(construct.String(expect))
	aStr := must(construct.String(actual))
	assert.Equal(eStr, aStr, msg("graph mismatch")...)
}

func StringToGraphElement(e string) (any, error) {
	if strings.Contains(e, " -> ") || strings.Contains(e, " <- ") {
		var edge construct.SimpleEdge
		err := edge.UnmarshalText([]byte(e))
		return edge, err
	}
	var id construct.ResourceId
	err := id.UnmarshalText([]byte(e))
	return id, err
}

// AddElement adds an element to a graph. See [MakeGraph] for the supported element types.
// Returns whether adding the element failed.
func AddElement(t *testing.T, g construct.Graph, e any) (failed bool) {
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	if estr, ok := e.(string); ok {
		var err error
		e, err = StringToGraphElement(estr)
		if err != nil {
			t.Errorf("invalid element %q Parse errors: %v", estr, err)
			return true
		}
	}

	addIfMissing := func(res *construct.Resource) {
		if _, err := g.Vertex(res.ID); errors.Is(err, graph.ErrVertexNotFound) {
			must(g.AddVertex(res))
		} else if err != nil {
			t.Fatal(fmt.Errorf("could check vertex %s: %w", res.ID, err))
		}
	}

	switch e := e.(type) {
	case construct.ResourceId:
		addIfMissing(&construct.Resource{ID: e})

	case *construct.Resource:
		addIfMissing(e)

	case construct.SimpleEdge:
		addIfMissing(&construct.Resource{ID: e.Source})
		addIfMissing(&construct.Resource{ID: e.Target})
		must(g.AddEdge(e.Source, e.Target))

	default:
		t.Errorf("invalid element of type %T", e)
		return true
	}
	return false
}

// MakeGraph creates a graph from a list of elements which can be of types:
// - ResourceId : adds an empty resource with the given ID
// - *Resource : adds the given resource
// - SimpleEdge : adds the given edge, and its endpoints if missing
// - string : parses the string as either a ResourceId or an edge and adds it as above
func MakeGraph(t *testing.T, g construct.Graph, elements ...any) construct.Graph {
	failed := false
	for i, e := range elements {
		if AddElement(t, g, e) {
			t.Errorf("failed to add element[%d] (%v) to graph", i, e)
			failed = true
		}
	}
	if failed {
		// Fail now because if the graph didn't parse correctly, then the rest of the test is likely to fail
		t.FailNow()
	}

	return g
}

func ParseId(t *testing.T, str string) (id construct.ResourceId) {
	err := id.UnmarshalText([]byte(str))
	if err != nil {
		t.Fatalf("failed to parse resource id %q: %v", str, err)
	}
	return
}
