package logging

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEntryLeveller(t *testing.T) {
	tests := []struct {
		name    string
		levels  map[string]zapcore.Level
		logger  string
		level   zapcore.Level
		logged  bool
	}{
		{
			name:   "no configured level falls through",
			logger: "synth",
			level:  zapcore.DebugLevel,
			logged: true,
		},
		{
			name:   "exact name filtered",
			levels: map[string]zapcore.Level{"dot": zapcore.WarnLevel},
			logger: "dot",
			level:  zapcore.InfoLevel,
			logged: false,
		},
		{
			name:   "exact name allowed",
			levels: map[string]zapcore.Level{"dot": zapcore.WarnLevel},
			logger: "dot",
			level:  zapcore.ErrorLevel,
			logged: true,
		},
		{
			name:   "parent name applies to child",
			levels: map[string]zapcore.Level{"dot": zapcore.WarnLevel},
			logger: "dot.stderr",
			level:  zapcore.InfoLevel,
			logged: false,
		},
		{
			name: "child overrides parent",
			levels: map[string]zapcore.Level{
				"dot":        zapcore.WarnLevel,
				"dot.stderr": zapcore.DebugLevel,
			},
			logger: "dot.stderr",
			level:  zapcore.InfoLevel,
			logged: true,
		},
		{
			name:   "root level applies to everything",
			levels: map[string]zapcore.Level{"": zapcore.ErrorLevel},
			logger: "cdkgraph",
			level:  zapcore.WarnLevel,
			logged: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			log := zap.New(NewEntryLeveller(core, tt.levels)).Named(tt.logger)

			if ce := log.Check(tt.level, "message"); ce != nil {
				ce.Write()
			}

			if tt.logged {
				assert.Equal(t, 1, logs.Len())
			} else {
				assert.Equal(t, 0, logs.Len())
			}
		})
	}
}

func TestEntryLeveller_With(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(NewEntryLeveller(core, map[string]zapcore.Level{"stacks": zapcore.WarnLevel}))

	child := log.Named("stacks").With(zap.String("stack", "NetworkStack"))
	child.Info("dropped")
	child.Warn("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "NetworkStack", entry.ContextMap()["stack"])
}

func TestLogOpts_Levels(t *testing.T) {
	opts := LogOpts{DefaultLevels: map[string]zapcore.Level{"dot": zapcore.WarnLevel}}

	t.Run("defaults without env", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		require.NoError(t, os.Unsetenv("LOG_LEVEL"))
		assert.Equal(t, opts.DefaultLevels, opts.Levels())
	})

	t.Run("env replaces defaults", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "cdkgraph=debug,bogus,visualizer=nope,=error")
		assert.Equal(t, map[string]zapcore.Level{
			"cdkgraph": zapcore.DebugLevel,
			"":         zapcore.ErrorLevel,
		}, opts.Levels())
	})
}

func TestLogOpts_NewLoggerTo(t *testing.T) {
	t.Run("json encoding", func(t *testing.T) {
		buf := new(bytes.Buffer)
		log, err := LogOpts{Encoding: "json", Color: "never"}.NewLoggerTo(buf)
		require.NoError(t, err)

		log.Named("synth").Info("synthesized", zap.String("dir", "cdk.out"))
		log.Debug("hidden")

		out := buf.String()
		assert.Contains(t, out, `"logger":"synth"`)
		assert.Contains(t, out, `"dir":"cdk.out"`)
		assert.NotContains(t, out, "hidden")
	})

	t.Run("verbose console", func(t *testing.T) {
		buf := new(bytes.Buffer)
		log, err := LogOpts{Verbose: true, Color: "never"}.NewLoggerTo(buf)
		require.NoError(t, err)

		log.Debug("shown")
		assert.Contains(t, buf.String(), "shown")
		assert.NotContains(t, buf.String(), "\x1b[")
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := LogOpts{Encoding: "xml"}.NewLoggerTo(new(bytes.Buffer))
		assert.EqualError(t, err, `unknown encoding "xml"`)
	})
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	ctx, log := Named(ctx, "cdkgraph")
	log.Info("from named")
	GetLogger(ctx).Info("from context")

	require.Equal(t, 2, logs.Len())
	for _, e := range logs.All() {
		assert.Equal(t, "cdkgraph", e.LoggerName)
	}

	assert.Same(t, zap.L(), GetLogger(context.Background()))
}
