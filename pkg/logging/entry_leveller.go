package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller is a zapcore.Core that filters entries by logger name. A level set for
// "kendra" applies to "kendra" and every "kendra.*" child; "" sets the fallback for
// named loggers.
type EntryLeveller struct {
	zapcore.Core

	levels map[string]zapcore.Level
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	el := &EntryLeveller{Core: core, levels: make(map[string]zapcore.Level, len(levels))}
	for k, v := range levels {
		el.levels[k] = v
	}
	return el
}

func (el *EntryLeveller) With(f []zapcore.Field) zapcore.Core {
	return &EntryLeveller{Core: el.Core.With(f), levels: el.levels}
}

// LevelFor returns the configured level for the logger name, walking up its dotted parents.
func (el *EntryLeveller) LevelFor(name string) (zapcore.Level, bool) {
	if name == "" {
		return 0, false
	}
	for module := name; ; {
		if lvl, ok := el.levels[module]; ok {
			return lvl, true
		}
		i := strings.LastIndexByte(module, '.')
		if i < 0 {
			break
		}
		module = module[:i]
	}
	lvl, ok := el.levels[""]
	return lvl, ok
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if lvl, ok := el.LevelFor(e.LoggerName); ok {
		if e.Level < lvl {
			return ce
		}
		return ce.AddCore(e, el)
	}
	return el.Core.Check(e, ce)
}
