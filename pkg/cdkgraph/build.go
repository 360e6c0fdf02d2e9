package cdkgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/iancoleman/strcase"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
	"go.uber.org/zap"
)

// ResourceType converts a CloudFormation type into the snake cased `service_resource` form
// used in resource ids, e.g. `AWS::ElasticLoadBalancingV2::TargetGroup` becomes provider `aws`
// and type `elasticloadbalancingv2_target_group`.
func ResourceType(cfnType string) (provider, typ string) {
	parts := strings.Split(cfnType, "::")
	provider = strings.ToLower(parts[0])
	switch len(parts) {
	case 1:
		return provider, ""
	case 2:
		return provider, strcase.ToSnake(parts[1])
	}
	service := strings.ToLower(strings.Join(parts[1:len(parts)-1], "_"))
	return provider, service + "_" + strcase.ToSnake(parts[len(parts)-1])
}

// ResourceID is the graph id of the resource `logicalId` in `stack`.
func ResourceID(stack, logicalId, cfnType string) construct.ResourceId {
	provider, typ := ResourceType(cfnType)
	return construct.ResourceId{
		Provider:  provider,
		Type:      typ,
		Namespace: stack,
		Name:      logicalId,
	}
}

// Build creates the resource graph of an assembly. There is one vertex per CloudFormation
// resource, and an edge from each resource to every resource it references.
func Build(asm *Assembly) (construct.Graph, error) {
	log := zap.L().Named("cdkgraph")
	g := construct.NewGraph()

	// ids maps stack -> logical id -> graph id, so references can be resolved per stack.
	ids := make(map[string]map[string]construct.ResourceId, len(asm.Stacks))

	var errs error
	for _, stack := range asm.Stacks {
		stackIds := make(map[string]construct.ResourceId)
		ids[stack.Name] = stackIds
		for _, logicalId := range sortedResourceIds(stack.Template) {
			res := stack.Template.Resources[logicalId]
			if res.Type == metadataType {
				continue
			}
			id := ResourceID(stack.Name, logicalId, res.Type)
			if err := id.Validate(); err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			stackIds[logicalId] = id

			r := construct.CreateResource(id, res.Type)
			r.Path = res.Path()
			for k, v := range res.Properties {
				r.Properties[k] = v
			}
			errs = errors.Join(errs, g.AddVertex(r))
		}
	}
	if errs != nil {
		return nil, errs
	}

	exports := exportTargets(asm, ids)

	addEdge := func(source, target construct.ResourceId) {
		if source == target {
			return
		}
		err := g.AddEdge(source, target)
		if errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return
		}
		errs = errors.Join(errs, err)
	}

	for _, stack := range asm.Stacks {
		stackIds := ids[stack.Name]
		for _, logicalId := range sortedResourceIds(stack.Template) {
			source, ok := stackIds[logicalId]
			if !ok {
				continue
			}
			res := stack.Template.Resources[logicalId]
			refs := collectReferences(res.Properties)

			for _, ref := range refs.logical {
				// Parameters and pseudo parameters (AWS::Region, ...) are not vertices.
				if target, ok := stackIds[ref]; ok {
					addEdge(source, target)
				}
			}
			for _, dep := range res.DependsOn {
				target, ok := stackIds[dep]
				if !ok {
					errs = errors.Join(errs, fmt.Errorf("%s: depends on unknown resource %q", source, dep))
					continue
				}
				addEdge(source, target)
			}
			for _, name := range refs.imports {
				target, ok := exports[name]
				if !ok {
					log.Debug("Import has no matching export", zap.Stringer("resource", source), zap.String("export", name))
					continue
				}
				addEdge(source, target)
			}
		}
	}
	if errs != nil {
		return nil, errs
	}
	return g, nil
}

// exportTargets maps export names to the resource whose value the export carries.
func exportTargets(asm *Assembly, ids map[string]map[string]construct.ResourceId) map[string]construct.ResourceId {
	exports := make(map[string]construct.ResourceId)
	for _, stack := range asm.Stacks {
		outputNames := make([]string, 0, len(stack.Template.Outputs))
		for name := range stack.Template.Outputs {
			outputNames = append(outputNames, name)
		}
		sort.Strings(outputNames)

		for _, name := range outputNames {
			out := stack.Template.Outputs[name]
			exportName, ok := out.ExportName()
			if !ok {
				continue
			}
			for _, ref := range collectReferences(out.Value).logical {
				if target, ok := ids[stack.Name][ref]; ok {
					exports[exportName] = target
					break
				}
			}
		}
	}
	return exports
}

func sortedResourceIds(t Template) []string {
	ids := make([]string, 0, len(t.Resources))
	for id := range t.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load reads the assembly in `dir` and builds its resource graph.
func Load(dir string) (construct.Graph, error) {
	asm, err := ReadAssembly(dir)
	if err != nil {
		return nil, err
	}
	return Build(asm)
}
