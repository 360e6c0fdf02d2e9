package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/nextjs-cdk-example/infra/pkg/visualizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../cdkgraph/testdata/assembly"

func init() {
	color.NoColor = true
}

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, format string, _ io.Reader, output io.Writer) error {
	_, err := output.Write([]byte(format))
	return err
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	cmd := app.NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-color", "never"))
	err := app.Execute(context.Background(), cmd)
	return out.String(), err
}

func copyFixture(t *testing.T) string {
	dst := t.TempDir()
	entries, err := os.ReadDir(fixtureDir)
	require.NoError(t, err)
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(fixtureDir, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), b, 0644))
	}
	return dst
}

func TestLevelledFlag(t *testing.T) {
	var f LevelledFlag
	require.NoError(t, f.Set("true"))
	require.NoError(t, f.Set("true"))
	assert.Equal(t, "2", f.String())
	require.NoError(t, f.Set("false"))
	assert.EqualValues(t, 1, f)
	require.NoError(t, f.Set("5"))
	assert.EqualValues(t, 5, f)
	assert.Error(t, f.Set("loud"))
}

func TestCommonConfig_LogOpts(t *testing.T) {
	cfg := CommonConfig{jsonLog: true}
	opts := cfg.LogOpts()
	assert.False(t, opts.Verbose)
	assert.Equal(t, "json", opts.Encoding)
	assert.Contains(t, opts.DefaultLevels, "synth.visualizer.dot")

	cfg.verbose = 2
	opts = cfg.LogOpts()
	assert.True(t, opts.Verbose)
	assert.Empty(t, opts.DefaultLevels)
}

func TestApp_Execute_FinishesOnError(t *testing.T) {
	profile := filepath.Join(t.TempDir(), "prof", "cpu.prof")
	app := &App{}

	_, err := execute(t, app, "graph", "--assembly", fixtureDir, "--filter", "tiny", "--profiling", profile)
	require.Error(t, err)
	assert.Nil(t, app.Common.profileClose)

	// The profile is flushed on stop, and a stopped profiler can be started again.
	info, err := os.Stat(profile)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	_, err = execute(t, &App{}, "graph", "--assembly", fixtureDir, "--profiling", profile)
	assert.NoError(t, err)
}

func TestGraphCmd(t *testing.T) {
	out, err := execute(t, &App{}, "graph", "--assembly", fixtureDir, "--filter", "compact")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "resources:\n"), out)
	assert.Contains(t, out, "  aws:ec2_vpc:NetworkStack:Vpc:\n    type: AWS::EC2::VPC\n")
	assert.Contains(t, out, "\nedges:\n")

	_, err = execute(t, &App{}, "graph", "--assembly", fixtureDir, "--filter", "tiny")
	assert.EqualError(t, err, `unknown filter preset "tiny" (must be none or compact)`)
}

func TestDiffCmd(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		out, err := execute(t, &App{}, "diff", fixtureDir, copyFixture(t))
		require.NoError(t, err)
		assert.Equal(t, "No changes\n", out)
	})

	t.Run("changed", func(t *testing.T) {
		changed := copyFixture(t)
		path := filepath.Join(changed, "NetworkStack.template.json")
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		b = bytes.Replace(b, []byte(`"HealthCheckPath": "/"`), []byte(`"HealthCheckPath": "/health"`), 1)
		require.NoError(t, os.WriteFile(path, b, 0644))

		out, err := execute(t, &App{}, "diff", fixtureDir, changed)
		assert.ErrorIs(t, err, ErrAssembliesDiffer)
		assert.Equal(t,
			"~ resources.aws:elasticloadbalancingv2_target_group:NetworkStack:TargetGroup3D7CD9B8.properties.HealthCheckPath: / -> /health\n",
			out)
	})

	t.Run("needs two assemblies", func(t *testing.T) {
		_, err := execute(t, &App{}, "diff", fixtureDir)
		assert.Error(t, err)
	})
}

func TestDiagramCmd(t *testing.T) {
	dir := copyFixture(t)
	cfgFile := filepath.Join(t.TempDir(), "infra.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(strings.Join([]string{
		"diagrams:",
		"  - name: overview",
		"    format: svg",
		"  - name: detailed",
		"    format: dot",
		"    filter: none",
		"",
	}, "\n")), 0644))

	out, err := execute(t, &App{Renderer: fakeRenderer{}}, "diagram", "--assembly", dir, "--config", cfgFile)
	require.NoError(t, err)

	outDir := filepath.Join(dir, visualizer.OutDirName)
	assert.Equal(t, strings.Join([]string{
		filepath.Join(outDir, "overview.dot"),
		filepath.Join(outDir, "overview.topology.yaml"),
		filepath.Join(outDir, "overview.svg"),
		filepath.Join(outDir, "detailed.dot"),
		filepath.Join(outDir, "detailed.topology.yaml"),
		"",
	}, "\n"), out)

	svg, err := os.ReadFile(filepath.Join(outDir, "overview.svg"))
	require.NoError(t, err)
	assert.Equal(t, "svg", string(svg))
}
