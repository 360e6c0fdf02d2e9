package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/nextjs-cdk-example/infra/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type CommonConfig struct {
	verbose    LevelledFlag
	jsonLog    bool
	logColor   string
	profileTo  string
	configFile string

	profileClose func()
}

// Finish flushes the logger and stops the profile started by the root pre-run.
// cobra skips the post-run hooks when a command fails, so callers run it after Execute.
func (c *CommonConfig) Finish() {
	zap.L().Sync() //nolint:errcheck

	if c.profileClose != nil {
		c.profileClose()
		c.profileClose = nil
	}
}

func (c CommonConfig) LogOpts() logging.LogOpts {
	opts := logging.LogOpts{
		Verbose: c.verbose > 0,
		Color:   c.logColor,
	}
	// At -vv every logger is at debug, including the child process output.
	if c.verbose < 2 {
		opts.DefaultLevels = map[string]zapcore.Level{
			// graphviz runs under the visualizer, from `synth` or from `diagram`.
			"synth.visualizer.dot": zap.WarnLevel,
			"visualizer.dot":       zap.WarnLevel,
		}
	}
	if c.jsonLog {
		opts.Encoding = "json"
	}
	return opts
}

func setupProfiling(commonCfg *CommonConfig) (func(), error) {
	if commonCfg.profileTo == "" {
		return func() {}, nil
	}
	err := os.MkdirAll(filepath.Dir(commonCfg.profileTo), 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	profileF, err := os.OpenFile(commonCfg.profileTo, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile file: %w", err)
	}
	err = pprof.StartCPUProfile(profileF)
	if err != nil {
		profileF.Close() // nolint:errcheck
		return nil, fmt.Errorf("failed to start profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		profileF.Close() // nolint:errcheck
	}, nil
}

func SetupRoot(root *cobra.Command, commonCfg *CommonConfig) {
	flags := root.PersistentFlags()
	flags.VarP(&commonCfg.verbose, "verbose", "v", "Enable verbose logging (repeat for more)")
	flags.Lookup("verbose").NoOptDefVal = "true"
	flags.BoolVar(&commonCfg.jsonLog, "json-log", false, "Enable JSON logging")
	flags.StringVar(&commonCfg.logColor, "log-color", "auto", "Colorize logs: auto, always or never")
	flags.StringVar(&commonCfg.profileTo, "profiling", "", "Profile to file")
	flags.StringVarP(&commonCfg.configFile, "config", "c", "", "Config file (.yaml, .yml, .toml or .json)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := commonCfg.LogOpts().NewLogger()
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)

		commonCfg.profileClose, err = setupProfiling(commonCfg)
		return err
	}
}
