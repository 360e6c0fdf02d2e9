package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/mitchellh/mapstructure"
	"github.com/nextjs-cdk-example/infra/pkg/closenicely"
	"github.com/pelletier/go-toml/v2"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		// NodeEnv is the deployment flavour, tagged onto every stack.
		NodeEnv string `json:"node_env" yaml:"node_env" toml:"node_env"`
		AWS     AWS    `json:"aws" yaml:"aws" toml:"aws"`

		// OutDir overrides where the cloud assembly is written. When empty, the CDK default
		// (or CDK_OUTDIR, set by the cdk CLI) is used.
		OutDir string `json:"out_dir,omitempty" yaml:"out_dir,omitempty" toml:"out_dir,omitempty"`

		Diagrams []Diagram `json:"diagrams,omitempty" yaml:"diagrams,omitempty" toml:"diagrams,omitempty"`
	}

	AWS struct {
		Region    string `json:"region" yaml:"region" toml:"region"`
		AccountID string `json:"account_id" yaml:"account_id" toml:"account_id"`
	}

	// Diagram describes one rendering of the synthesized resource graph.
	Diagram struct {
		Name   string `json:"name" yaml:"name" toml:"name"`
		Title  string `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
		Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`
		Theme  string `json:"theme,omitempty" yaml:"theme,omitempty" toml:"theme,omitempty"`
		Filter string `json:"filter,omitempty" yaml:"filter,omitempty" toml:"filter,omitempty"`
	}
)

const (
	NodeEnvDevelop = "develop"
	NodeEnvProd    = "prod"

	FormatPNG = "png"
	FormatSVG = "svg"
	FormatDOT = "dot"

	ThemeLight = "light"
	ThemeDark  = "dark"

	FilterNone    = "none"
	FilterCompact = "compact"

	DefaultDiagramName = "nextjs-cdk-example-diagram"
)

var (
	nodeEnvs = []string{NodeEnvDevelop, NodeEnvProd}
	formats  = []string{FormatPNG, FormatSVG, FormatDOT}
	themes   = []string{ThemeLight, ThemeDark}
	filters  = []string{FilterNone, FilterCompact}

	// Diagram names become file names inside the output directory.
	diagramNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

func DefaultDiagram() Diagram {
	return Diagram{
		Name:   DefaultDiagramName,
		Title:  "NextJS CDK Diagram",
		Format: FormatPNG,
		Theme:  ThemeLight,
		Filter: FilterCompact,
	}
}

func Default() Config {
	return Config{
		NodeEnv:  NodeEnvDevelop,
		Diagrams: []Diagram{DefaultDiagram()},
	}
}

// ReadFile reads a json, yaml or toml file into a generic map, keyed the same way
// regardless of the source format.
func ReadFile(fpath string) (map[string]any, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer closenicely.OrDebug(f, zap.String("path", fpath))

	m := make(map[string]any)
	switch ext := filepath.Ext(fpath); ext {
	case ".json":
		err = json.NewDecoder(f).Decode(&m)

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&m)

	case ".toml":
		err = toml.NewDecoder(f).Decode(&m)

	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "could not decode config file %s", fpath)
	}
	return m, nil
}

// Decode applies the values from `m` on top of `cfg`. Scalars are weakly typed so that an
// account id written as a number in YAML or TOML still decodes to a string. A `diagrams` list
// in `m` replaces the existing list rather than merging into it.
func Decode(m map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

// Validate reports every problem with the configuration, joined into one error.
func (c Config) Validate() error {
	var errs error
	if !slices.Contains(nodeEnvs, c.NodeEnv) {
		errs = errors.Join(errs, fmt.Errorf("node_env %q must be one of %v", c.NodeEnv, nodeEnvs))
	}
	if c.AWS.Region == "" {
		errs = errors.Join(errs, fmt.Errorf("aws region is required (set %s)", EnvRegion))
	}
	// The account id format is left to CloudFormation, only its presence is checked here.
	if c.AWS.AccountID == "" {
		errs = errors.Join(errs, fmt.Errorf("aws account id is required (set %s)", EnvAccountID))
	}

	return errors.Join(errs, c.ValidateDiagrams())
}

// ValidateDiagrams checks only the diagram settings, for commands that render an existing
// assembly and never need the AWS environment.
func (c Config) ValidateDiagrams() error {
	var errs error
	names := make(map[string]struct{}, len(c.Diagrams))
	for i, d := range c.Diagrams {
		if err := d.Validate(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("diagram[%d]: %w", i, err))
		}
		if _, dup := names[d.Name]; dup {
			errs = errors.Join(errs, fmt.Errorf("diagram[%d]: duplicate name %q", i, d.Name))
		}
		names[d.Name] = struct{}{}
	}
	return errs
}

func (d Diagram) Validate() error {
	var errs error
	switch {
	case d.Name == "":
		errs = errors.Join(errs, errors.New("name is required"))
	case d.Name == "." || d.Name == ".." || !diagramNamePattern.MatchString(d.Name):
		errs = errors.Join(errs, fmt.Errorf("name %q must be a file name (letters, digits, '.', '_' or '-')", d.Name))
	}
	if !slices.Contains(formats, d.Format) {
		errs = errors.Join(errs, fmt.Errorf("format %q must be one of %v", d.Format, formats))
	}
	if !slices.Contains(themes, d.Theme) {
		errs = errors.Join(errs, fmt.Errorf("theme %q must be one of %v", d.Theme, themes))
	}
	if !slices.Contains(filters, d.Filter) {
		errs = errors.Join(errs, fmt.Errorf("filter %q must be one of %v", d.Filter, filters))
	}
	return errs
}

// WithDefaults fills unset diagram fields from DefaultDiagram.
func (d Diagram) WithDefaults() Diagram {
	def := DefaultDiagram()
	if d.Title == "" {
		d.Title = d.Name
	}
	if d.Format == "" {
		d.Format = def.Format
	}
	if d.Theme == "" {
		d.Theme = def.Theme
	}
	if d.Filter == "" {
		d.Filter = def.Filter
	}
	return d
}

// Environment is the region/account pair passed unchanged into every stack.
func (c Config) Environment() *awscdk.Environment {
	return &awscdk.Environment{
		Region:  jsii.String(c.AWS.Region),
		Account: jsii.String(c.AWS.AccountID),
	}
}
