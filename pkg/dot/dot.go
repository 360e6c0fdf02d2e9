package dot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	"github.com/google/pprof/third_party/svgpan"
	"github.com/nextjs-cdk-example/infra/pkg/logging"
	"go.uber.org/zap"
)

// The following adds SVG pan to the SVG output from DOT, taken from
// https://github.com/google/pprof/blob/main/internal/driver/svg.go

var (
	viewBox  = regexp.MustCompile(`<svg\s*width="[^"]+"\s*height="[^"]+"\s*viewBox="[^"]+"`)
	graphID  = regexp.MustCompile(`<g id="graph\d"`)
	svgClose = regexp.MustCompile(`</svg>`)
)

// SvgPan enhances the SVG output from DOT to provide better
// panning inside a web browser. It uses the svgpan library, which is
// embedded into the svgpan.JSSource variable.
func SvgPan(svg string) string {
	// Work around for dot bug which misses quoting some ampersands,
	// resulting on unparsable SVG.
	svg = strings.Replace(svg, "&;", "&amp;;", -1)

	// Dot's SVG output is
	//
	//    <svg width="___" height="___"
	//     viewBox="___" xmlns=...>
	//    <g id="graph0" transform="...">
	//    ...
	//    </g>
	//    </svg>
	//
	// Change it to
	//
	//    <svg width="100%" height="100%"
	//     xmlns=...>

	//    <script type="text/ecmascript"><![CDATA[` ..$(svgpan.JSSource)... `]]></script>`
	//    <g id="viewport" transform="translate(0,0)">
	//    <g id="graph0" transform="...">
	//    ...
	//    </g>
	//    </g>
	//    </svg>

	if loc := viewBox.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] +
			`<svg width="100%" height="100%"` +
			svg[loc[1]:]
	}

	if loc := graphID.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] +
			`<script type="text/ecmascript"><![CDATA[` + svgpan.JSSource + `]]></script>` +
			`<g id="viewport" transform="scale(0.5,0.5) translate(0,0)">` +
			svg[loc[0]:]
	}

	if loc := svgClose.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] +
			`</g>` +
			svg[loc[0]:]
	}

	return svg
}

// Graphviz renders DOT source with the graphviz `dot` binary.
type Graphviz struct {
	// Binary is the dot executable, "dot" on the PATH when empty.
	Binary string
}

func (g Graphviz) binary() string {
	if g.Binary == "" {
		return "dot"
	}
	return g.Binary
}

// Available reports whether the dot binary can be found.
func (g Graphviz) Available() error {
	_, err := exec.LookPath(g.binary())
	return err
}

// Render runs `dot -T<format>` over input and writes the result to output. SVG output gets
// svgpan added so it can be panned and zoomed in a browser.
func (g Graphviz) Render(ctx context.Context, format string, input io.Reader, output io.Writer) error {
	log := logging.GetLogger(ctx).Named("dot")

	out := new(bytes.Buffer)
	errBuff := new(bytes.Buffer)
	cmd := logging.Command(
		ctx,
		logging.CommandLogger{RootLogger: log, StdoutLevel: zap.DebugLevel, StderrLevel: zap.WarnLevel},
		g.binary(), "-T"+format,
	)
	cmd.Stdin = input
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(cmd.Stderr, errBuff)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("could not run '%s': %w: %s", g.binary(), err, errBuff.String())
	}
	log.Debug("dot output", zap.String("format", format), zap.Int("bytes", out.Len()))

	if format == "svg" {
		_, err := io.WriteString(output, SvgPan(out.String()))
		return err
	}
	_, err := out.WriteTo(output)
	return err
}
