package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

type LoadOptions struct {
	// File is an optional json/yaml/toml config file.
	File string
	// EnvFile is the dotenv file to read, ".env" when empty. A missing file is not an error.
	EnvFile string
	// LookupEnv reads the process environment, os.LookupEnv when nil.
	LookupEnv func(string) (string, bool)
	// DiagramsOnly skips validation of everything but the diagrams.
	DiagramsOnly bool
}

// Load builds the configuration from defaults, the optional config file, the dotenv file and
// the process environment, in increasing order of precedence, and validates the result.
func Load(opts LoadOptions) (Config, error) {
	log := zap.L().Named("config")
	cfg := Default()

	if opts.File != "" {
		m, err := ReadFile(opts.File)
		if err != nil {
			return cfg, err
		}
		if err := Decode(m, &cfg); err != nil {
			return cfg, pkgerrors.Wrapf(err, "invalid config file %s", opts.File)
		}
		log.Debug("Read config file", zap.String("path", opts.File))
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		dotenv = map[string]string{}
	case err != nil:
		return cfg, pkgerrors.Wrapf(err, "could not read %s", envFile)
	default:
		log.Debug("Read dotenv file", zap.String("path", envFile), zap.Int("variables", len(dotenv)))
	}

	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	lookupDotenv := func(key string) (string, bool) {
		v, ok := dotenv[key]
		return v, ok
	}
	cfg.ApplyEnv(lookupEnv, lookupDotenv)

	for i, d := range cfg.Diagrams {
		cfg.Diagrams[i] = d.WithDefaults()
	}

	validate := cfg.Validate
	if opts.DiagramsOnly {
		validate = cfg.ValidateDiagrams
	}
	if err := validate(); err != nil {
		return cfg, err
	}
	log.Debug("Loaded config",
		zap.String("node_env", cfg.NodeEnv),
		zap.String("region", cfg.AWS.Region),
		zap.Int("diagrams", len(cfg.Diagrams)),
	)
	return cfg, nil
}

// ApplyEnv overrides the configuration with environment variables. Sources are consulted in order
// for each variable, so the process environment should come before any dotenv values.
func (c *Config) ApplyEnv(sources ...func(string) (string, bool)) {
	if v, ok := EnvNodeEnv.Lookup(sources...); ok {
		c.NodeEnv = v
	}
	if v, ok := firstOf([]EnvVar{EnvRegion, EnvDefaultRegion}, sources...); ok {
		c.AWS.Region = v
	}
	if v, ok := firstOf([]EnvVar{EnvAccountID, EnvDefaultAcct}, sources...); ok {
		c.AWS.AccountID = v
	}
}
