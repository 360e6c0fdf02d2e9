package visualizer

import (
	"errors"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
)

const (
	TagNetwork  = "network"
	TagCompute  = "compute"
	TagStorage  = "storage"
	TagSecurity = "security"
	TagOther    = "other"
)

type (
	VisResource struct {
		ID construct.ResourceId

		CfnType string
		Path    string
		// Tag groups resources by concern, for styling.
		Tag string
	}

	VisGraph = graph.Graph[construct.ResourceId, *VisResource]
)

var serviceTags = map[string]string{
	"ec2":                    TagNetwork,
	"elasticloadbalancingv2": TagNetwork,
	"ecs":                    TagCompute,
	"applicationautoscaling": TagCompute,
	"lambda":                 TagCompute,
	"ecr":                    TagStorage,
	"s3":                     TagStorage,
	"iam":                    TagSecurity,
	"kms":                    TagSecurity,
}

// TagFor classifies a CloudFormation type by its service, e.g. `AWS::ECS::Service` is compute.
func TagFor(cfnType string) string {
	parts := strings.Split(cfnType, "::")
	if len(parts) < 3 {
		return TagOther
	}
	if tag, ok := serviceTags[strings.ToLower(parts[1])]; ok {
		return tag
	}
	return TagOther
}

func NewVisGraph() VisGraph {
	return graph.New(
		func(r *VisResource) construct.ResourceId { return r.ID },
		graph.Directed(),
	)
}

func ConstructToVis(g construct.Graph) (VisGraph, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	vis := NewVisGraph()
	var errs error
	for id := range adj {
		r, err := g.Vertex(id)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		errs = errors.Join(errs, vis.AddVertex(&VisResource{
			ID:      id,
			CfnType: r.CfnType,
			Path:    r.Path,
			Tag:     TagFor(r.CfnType),
		}))
	}
	if errs != nil {
		return nil, errs
	}
	for source, targets := range adj {
		for target := range targets {
			errs = errors.Join(errs, vis.AddEdge(source, target))
		}
	}
	return vis, errs
}
