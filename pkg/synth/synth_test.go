package synth

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/nextjs-cdk-example/infra/pkg/cdkgraph"
	"github.com/nextjs-cdk-example/infra/pkg/config"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
	"github.com/nextjs-cdk-example/infra/pkg/visualizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.AWS.Region = "us-east-1"
	cfg.AWS.AccountID = "123456789012"
	cfg.OutDir = t.TempDir()
	return cfg
}

// compose declares the stacks in a fresh app and synthesizes it, so cross-stack
// dependencies are recorded.
func compose(t *testing.T, cfg config.Config) Stacks {
	app := awscdk.NewApp(&awscdk.AppProps{Outdir: jsii.String(t.TempDir())})
	s := Compose(app, cfg)
	app.Synth(nil)
	return s
}

type fakeRenderer struct {
	formats []string
}

func (r *fakeRenderer) Render(_ context.Context, format string, input io.Reader, output io.Writer) error {
	r.formats = append(r.formats, format)
	if _, err := io.Copy(io.Discard, input); err != nil {
		return err
	}
	_, err := output.Write([]byte(format))
	return err
}

func TestCompose(t *testing.T) {
	cfg := testConfig(t)
	s := compose(t, cfg)

	t.Run("stack order", func(t *testing.T) {
		var deps []string
		for _, d := range *s.AppService.Dependencies() {
			deps = append(deps, *d.StackName())
		}
		sort.Strings(deps)
		assert.Equal(t, []string{RegistryStackId, NetworkStackId}, deps)
		assert.Empty(t, *s.Network.Dependencies())
		assert.Empty(t, *s.Registry.Dependencies())
	})

	t.Run("environment", func(t *testing.T) {
		for _, stack := range []awscdk.Stack{s.Network.Stack, s.Registry.Stack, s.AppService.Stack} {
			assert.Equal(t, cfg.AWS.Region, *stack.Region(), *stack.StackName())
			assert.Equal(t, cfg.AWS.AccountID, *stack.Account(), *stack.StackName())
		}
	})

	t.Run("tags", func(t *testing.T) {
		tagged := map[awscdk.Stack]string{
			s.Network.Stack:    "AWS::EC2::VPC",
			s.Registry.Stack:   "AWS::ECR::Repository",
			s.AppService.Stack: "AWS::ECS::Cluster",
		}
		for stack, cfnType := range tagged {
			template := assertions.Template_FromStack(stack, nil)
			for key, value := range map[string]string{"Project": ProjectName, "Environment": config.NodeEnvDevelop} {
				tag := []any{map[string]any{"Key": key, "Value": value}}
				props := map[string]any{"Tags": assertions.Match_ArrayWith(&tag)}
				template.HasResourceProperties(jsii.String(cfnType), &props)
			}
		}
	})
}

func TestCompose_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	first := compose(t, cfg)
	second := compose(t, cfg)

	pairs := [][2]awscdk.Stack{
		{first.Network.Stack, second.Network.Stack},
		{first.Registry.Stack, second.Registry.Stack},
		{first.AppService.Stack, second.AppService.Stack},
	}
	for _, p := range pairs {
		a := assertions.Template_FromStack(p[0], nil).ToJSON()
		b := assertions.Template_FromStack(p[1], nil).ToJSON()
		assert.Equal(t, *a, *b, *p[0].StackName())
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Diagrams = append(cfg.Diagrams, config.Diagram{
		Name:   "detailed",
		Format: config.FormatSVG,
		Filter: config.FilterNone,
	})
	renderer := &fakeRenderer{}

	dir, err := Run(context.Background(), cfg, renderer)
	require.NoError(t, err)
	assert.Equal(t, cfg.OutDir, dir)
	assert.Equal(t, []string{config.FormatPNG, config.FormatSVG}, renderer.formats)

	for _, name := range []string{
		"NetworkStack.template.json",
		"EcrStack.template.json",
		"AppServiceStack.template.json",
		filepath.Join(visualizer.OutDirName, config.DefaultDiagramName+".png"),
		filepath.Join(visualizer.OutDirName, config.DefaultDiagramName+".dot"),
		filepath.Join(visualizer.OutDirName, "detailed.svg"),
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	asm, err := cdkgraph.ReadAssembly(dir)
	require.NoError(t, err)
	app, ok := asm.Stack(AppServiceStackId)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{NetworkStackId, RegistryStackId}, app.Dependencies)

	t.Run("same graph on a second run", func(t *testing.T) {
		again := cfg
		again.OutDir = t.TempDir()
		dir2, err := Run(context.Background(), again, &fakeRenderer{})
		require.NoError(t, err)

		g1, err := cdkgraph.Load(dir)
		require.NoError(t, err)
		g2, err := cdkgraph.Load(dir2)
		require.NoError(t, err)
		h1, err := construct.Hash(g1)
		require.NoError(t, err)
		h2, err := construct.Hash(g2)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)

		changes, err := cdkgraph.Diff(g1, g2)
		require.NoError(t, err)
		assert.Empty(t, changes)
	})

	t.Run("diagram failure", func(t *testing.T) {
		broken := cfg
		broken.OutDir = t.TempDir()
		_, err := Run(context.Background(), broken, nil)
		assert.ErrorContains(t, err, "could not report diagrams")
		_, statErr := os.Stat(filepath.Join(broken.OutDir, "manifest.json"))
		assert.NoError(t, statErr)
	})
}
