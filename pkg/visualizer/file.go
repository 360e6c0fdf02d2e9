package visualizer

import (
	"fmt"
	"io"
	"strings"

	"github.com/nextjs-cdk-example/infra/pkg/construct"
	"github.com/nextjs-cdk-example/infra/pkg/ioutil"
	"gopkg.in/yaml.v3"
)

const indent = "  "

type (
	// File is the topology.yaml description of a diagram's graph.
	File struct {
		FilenamePrefix string
		AppName        string
		Provider       string
		Graph          VisGraph
	}
)

func (f *File) Path() string {
	return fmt.Sprintf("%stopology.yaml", f.FilenamePrefix)
}

func (f *File) WriteTo(w io.Writer) (n int64, err error) {
	wh := ioutil.NewWriteToHelper(w, &n, &err)

	if f.AppName != "" {
		wh.Writef("app: %s\n", f.AppName)
	}
	wh.Writef("provider: %s\n", f.Provider)
	wh.Write("resources:\n")

	resourceIds, err := construct.ReverseTopologicalSort(f.Graph)
	if err != nil {
		return
	}
	adj, err := f.Graph.AdjacencyMap()
	if err != nil {
		return
	}
	for _, id := range resourceIds {
		res, err := f.Graph.Vertex(id)
		if err != nil {
			return n, err
		}
		src := f.KeyFor(id)
		wh.Writef(indent+"%s:\n", src)

		props := map[string]any{
			"tag": res.Tag,
		}
		if res.CfnType != "" {
			props["cfn_type"] = res.CfnType
		}
		if res.Path != "" {
			props["path"] = res.Path
		}
		if id.Namespace != "" {
			props["stack"] = id.Namespace
		}
		writeYaml(props, 2, wh)

		for _, dep := range construct.SortedTargets(adj[id]) {
			wh.Writef(indent+"%s -> %s:\n", src, f.KeyFor(dep))
		}
	}

	return
}

// KeyFor is the topology key of a resource: `type/name`, qualified with the provider when it
// differs from the file's provider and with the namespace when there is one.
func (f *File) KeyFor(res construct.ResourceId) string {
	var providerInfo string
	var namespaceInfo string
	if res.Provider != f.Provider || res.Namespace != "" {
		providerInfo = res.Provider + `:`
	}
	if res.Namespace != "" {
		namespaceInfo = ":" + res.Namespace
	}
	return strings.ToLower(fmt.Sprintf("%s%s%s/%s", providerInfo, res.Type, namespaceInfo, res.Name))
}

func writeYaml(e any, indentCount int, out ioutil.WriteToHelper) {
	bs, err := yaml.Marshal(e)
	if err != nil {
		out.AddErr(err)
		return
	}
	for _, line := range strings.Split(strings.TrimRight(string(bs), "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			out.Write(strings.Repeat(indent, indentCount))
		}
		out.Write(line)
		out.Write("\n")
	}
}
