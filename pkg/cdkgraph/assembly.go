package cdkgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nextjs-cdk-example/infra/pkg/closenicely"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	manifestFile      = "manifest.json"
	templateSuffix    = ".template.json"
	stackArtifactType = "aws:cloudformation:stack"
)

type (
	// Assembly is a synthesized cloud assembly: one template per stack.
	Assembly struct {
		Dir    string
		Stacks []Stack
	}

	Stack struct {
		// Name is the artifact id, which is the stack id given to the CDK.
		Name         string
		Environment  string
		Dependencies []string
		Template     Template
	}

	manifest struct {
		Artifacts map[string]manifestArtifact `json:"artifacts"`
	}

	manifestArtifact struct {
		Type         string   `json:"type"`
		Environment  string   `json:"environment"`
		Dependencies []string `json:"dependencies"`
		Properties   struct {
			TemplateFile string `json:"templateFile"`
		} `json:"properties"`
	}
)

// ReadAssembly loads every stack template of the cloud assembly in `dir`. The stack list
// comes from manifest.json; without a manifest, every `*.template.json` in the directory is
// read. Stacks are sorted by name.
func ReadAssembly(dir string) (*Assembly, error) {
	log := zap.L().Named("cdkgraph")

	asm := &Assembly{Dir: dir}
	m, err := readManifest(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("No manifest, globbing templates", zap.String("dir", dir))
		asm.Stacks, err = globStacks(dir)
	case err != nil:
		return nil, err
	default:
		asm.Stacks, err = manifestStacks(dir, m)
	}
	if err != nil {
		return nil, err
	}
	if len(asm.Stacks) == 0 {
		return nil, fmt.Errorf("no stack templates found in %s", dir)
	}

	sort.Slice(asm.Stacks, func(i, j int) bool {
		return asm.Stacks[i].Name < asm.Stacks[j].Name
	})
	log.Debug("Read cloud assembly", zap.String("dir", dir), zap.Int("stacks", len(asm.Stacks)))
	return asm, nil
}

func readManifest(dir string) (manifest, error) {
	var m manifest
	f, err := os.Open(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, err
	}
	defer closenicely.OrDebug(f, zap.String("path", f.Name()))
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return m, pkgerrors.Wrapf(err, "could not decode %s", f.Name())
	}
	return m, nil
}

func manifestStacks(dir string, m manifest) ([]Stack, error) {
	var stacks []Stack
	var errs error
	for name, artifact := range m.Artifacts {
		if artifact.Type != stackArtifactType {
			continue
		}
		file := artifact.Properties.TemplateFile
		if file == "" {
			file = name + templateSuffix
		}
		tmpl, err := readTemplate(filepath.Join(dir, file))
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		deps := make([]string, 0, len(artifact.Dependencies))
		for _, d := range artifact.Dependencies {
			// Asset manifests are artifacts too, only stack dependencies matter here.
			if other, ok := m.Artifacts[d]; ok && other.Type == stackArtifactType {
				deps = append(deps, d)
			}
		}
		sort.Strings(deps)
		stacks = append(stacks, Stack{
			Name:         name,
			Environment:  artifact.Environment,
			Dependencies: deps,
			Template:     tmpl,
		})
	}
	return stacks, errs
}

func globStacks(dir string) ([]Stack, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+templateSuffix))
	if err != nil {
		return nil, err
	}
	var stacks []Stack
	var errs error
	for _, file := range files {
		tmpl, err := readTemplate(file)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		stacks = append(stacks, Stack{
			Name:     strings.TrimSuffix(filepath.Base(file), templateSuffix),
			Template: tmpl,
		})
	}
	return stacks, errs
}

func readTemplate(path string) (Template, error) {
	var t Template
	f, err := os.Open(path)
	if err != nil {
		return t, err
	}
	defer closenicely.OrDebug(f, zap.String("path", path))
	if err := json.NewDecoder(f).Decode(&t); err != nil {
		return t, pkgerrors.Wrapf(err, "could not decode template %s", path)
	}
	return t, nil
}

// Stack returns the stack with the given name.
func (a *Assembly) Stack(name string) (Stack, bool) {
	for _, s := range a.Stacks {
		if s.Name == name {
			return s, true
		}
	}
	return Stack{}, false
}
