package visualizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nextjs-cdk-example/infra/pkg/cdkgraph"
	"github.com/nextjs-cdk-example/infra/pkg/config"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
	"github.com/nextjs-cdk-example/infra/pkg/logging"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:generate mockgen -source=./report.go --destination=./report_mock_test.go --package=visualizer

const (
	// OutDirName is the directory inside the cloud assembly that receives the diagrams.
	OutDirName = "cdkgraph"
	AppName    = "nextjs-cdk-example"
	provider   = "aws"
)

type (
	Diagram = config.Diagram

	// Renderer turns DOT source into an image of the given format.
	Renderer interface {
		Render(ctx context.Context, format string, input io.Reader, output io.Writer) error
	}
)

// Report reads the cloud assembly in assemblyDir and writes every diagram into
// `<assemblyDir>/cdkgraph`: the DOT source, a topology.yaml and, for png and svg, the image
// produced by renderer. A failing diagram does not stop the others; all failures are returned
// together with the files that were written.
func Report(ctx context.Context, assemblyDir string, diagrams []Diagram, renderer Renderer) ([]string, error) {
	ctx, log := logging.Named(ctx, "visualizer")

	g, err := cdkgraph.Load(assemblyDir)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "could not read cloud assembly %s", assemblyDir)
	}

	outDir := filepath.Join(assemblyDir, OutDirName)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	var files []string
	var errs error
	for _, d := range diagrams {
		d = d.WithDefaults()
		written, err := writeDiagram(ctx, g, outDir, d, renderer)
		files = append(files, written...)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("diagram %s: %w", d.Name, err))
			continue
		}
		log.Info("Wrote diagram", zap.String("name", d.Name), zap.Strings("files", written))
	}
	return files, errs
}

func writeDiagram(ctx context.Context, g construct.Graph, outDir string, d Diagram, renderer Renderer) ([]string, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	filter, err := cdkgraph.FilterFor(d.Filter)
	if err != nil {
		return nil, err
	}
	theme, err := ThemeFor(d.Theme)
	if err != nil {
		return nil, err
	}
	filtered, err := filter(g)
	if err != nil {
		return nil, err
	}
	vis, err := ConstructToVis(filtered)
	if err != nil {
		return nil, err
	}

	prefix := filepath.Join(outDir, d.Name)
	var files []string

	dotContent := new(bytes.Buffer)
	if err := ToDot(vis, d.Name, d.Title, theme, dotContent); err != nil {
		return files, err
	}
	dotPath := prefix + ".dot"
	if err := os.WriteFile(dotPath, dotContent.Bytes(), 0644); err != nil {
		return files, err
	}
	files = append(files, dotPath)

	topology := &File{FilenamePrefix: prefix + ".", AppName: AppName, Provider: provider, Graph: vis}
	if err := writeTo(topology.Path(), topology); err != nil {
		return files, err
	}
	files = append(files, topology.Path())

	if d.Format == config.FormatDOT {
		return files, nil
	}
	if renderer == nil {
		return files, fmt.Errorf("no renderer for format %s", d.Format)
	}
	imagePath := prefix + "." + d.Format
	f, err := os.Create(imagePath)
	if err != nil {
		return files, err
	}
	err = renderer.Render(ctx, d.Format, bytes.NewReader(dotContent.Bytes()), f)
	err = errors.Join(err, f.Close())
	if err != nil {
		// Don't leave a truncated image behind.
		_ = os.Remove(imagePath)
		return files, err
	}
	return append(files, imagePath), nil
}

func writeTo(path string, wt io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(f)
	return errors.Join(err, f.Close())
}
