package dot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesToString(t *testing.T) {
	tests := []struct {
		name    string
		attribs map[string]string
		want    string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name:    "sorted and quoted",
			attribs: map[string]string{"shape": "box", "label": `say "hi"`},
			want:    ` [label="say \"hi\"", shape="box"]`,
		},
		{
			name:    "html label",
			attribs: map[string]string{"label": "<<b>Vpc</b>>"},
			want:    ` [label=<<b>Vpc</b>>]`,
		},
		{
			name:    "trailing backslash",
			attribs: map[string]string{"label": `C:\diagrams\`},
			want:    ` [label="C:\\diagrams\\"]`,
		},
		{
			name:    "escaped quote stays escaped",
			attribs: map[string]string{"label": `a\"b`},
			want:    ` [label="a\\\"b"]`,
		},
		{
			name:    "line breaks",
			attribs: map[string]string{"label": "Vpc\nAWS::EC2::VPC"},
			want:    ` [label="Vpc\nAWS::EC2::VPC"]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttributesToString(tt.attribs))
		})
	}
}

const sampleSvg = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg width="62pt" height="44pt"
 viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg">
<g id="graph0" class="graph" transform="scale(1 1) rotate(0) translate(4 40)">
<title>G</title>
</g>
</svg>
`

func TestSvgPan(t *testing.T) {
	out := SvgPan(sampleSvg)

	assert.Contains(t, out, `<svg width="100%" height="100%"`)
	assert.NotContains(t, out, `viewBox=`)
	assert.Contains(t, out, `<g id="viewport" transform="scale(0.5,0.5) translate(0,0)"><g id="graph0"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</g>\n</g></svg>"))
}

// fakeDot writes a shell script standing in for graphviz that prints `output` and records its arguments.
func fakeDot(t *testing.T, output string) (binary, argsFile string) {
	dir := t.TempDir()
	binary = filepath.Join(dir, "dot")
	argsFile = filepath.Join(dir, "args")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\ncat > /dev/null\nprintf '%s' '" + output + "'\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, argsFile
}

func TestGraphviz_Render(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		binary, argsFile := fakeDot(t, "PNGDATA")
		out := new(bytes.Buffer)

		err := Graphviz{Binary: binary}.Render(context.Background(), "png", strings.NewReader("digraph {}"), out)
		require.NoError(t, err)
		assert.Equal(t, "PNGDATA", out.String())

		args, err := os.ReadFile(argsFile)
		require.NoError(t, err)
		assert.Equal(t, "-Tpng\n", string(args))
	})

	t.Run("svg gets pan", func(t *testing.T) {
		binary, _ := fakeDot(t, `<svg width="1pt" height="1pt" viewBox="0 0 1 1"><g id="graph0"></g></svg>`)
		out := new(bytes.Buffer)

		err := Graphviz{Binary: binary}.Render(context.Background(), "svg", strings.NewReader("digraph {}"), out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), `<g id="viewport"`)
	})

	t.Run("missing binary", func(t *testing.T) {
		g := Graphviz{Binary: filepath.Join(t.TempDir(), "no-such-dot")}
		assert.Error(t, g.Available())
		err := g.Render(context.Background(), "png", strings.NewReader("digraph {}"), new(bytes.Buffer))
		assert.ErrorContains(t, err, "could not run")
	})
}
