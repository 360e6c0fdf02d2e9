package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller is a zapcore.Core that filters log entries based on the logger name
// similar to Log4j or python's logging module. A level registered for "cdkgraph" applies to
// "cdkgraph" and "cdkgraph.reader" unless the latter has its own level.
type EntryLeveller struct {
	zapcore.Core

	levels   map[string]zapcore.Level
	resolved *sync.Map // map[string]zapcore.Level, cache of levels resolved from parent names
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	el := &EntryLeveller{
		Core:     core,
		levels:   make(map[string]zapcore.Level, len(levels)),
		resolved: new(sync.Map),
	}
	for k, v := range levels {
		el.levels[k] = v
	}
	return el
}

func (el *EntryLeveller) With(f []zapcore.Field) zapcore.Core {
	return &EntryLeveller{
		Core:     el.Core.With(f),
		levels:   el.levels,
		resolved: el.resolved,
	}
}

// LevelFor returns the configured level for the logger name and whether any was found.
func (el *EntryLeveller) LevelFor(name string) (zapcore.Level, bool) {
	if lvl, ok := el.resolved.Load(name); ok {
		return lvl.(zapcore.Level), true
	}

	lvl, ok := el.levels[name]
	if !ok && name != "" {
		nameParts := strings.Split(name, ".")
		for i := len(nameParts) - 1; i > 0; i-- {
			if lvl, ok = el.levels[strings.Join(nameParts[:i], ".")]; ok {
				break
			}
		}
		if !ok {
			lvl, ok = el.levels[""]
		}
	}
	if ok {
		el.resolved.Store(name, lvl)
	}
	return lvl, ok
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	lvl, ok := el.LevelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < lvl {
		return ce
	}
	return ce.AddCore(e, el)
}
