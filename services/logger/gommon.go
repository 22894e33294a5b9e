package logsvc

import (
	"io"

	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-portal/core"
)

const gommonHeader = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`

// GommonLogger writes JSON lines through echo's levelled logger. Used by the CLI.
type GommonLogger struct {
	log *log.Logger
}

var _ core.Logger = (*GommonLogger)(nil)

func NewGommonLogger(out io.Writer, prefix string, level log.Lvl) *GommonLogger {
	l := log.New(prefix)
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetHeader(gommonHeader)
	return &GommonLogger{log: l}
}

func (l GommonLogger) Debug(msg string, args ...interface{}) {
	l.log.Debugj(newEntry(msg, args).fields())
}

func (l GommonLogger) Info(msg string, args ...interface{}) {
	l.log.Infoj(newEntry(msg, args).fields())
}

func (l GommonLogger) Warn(msg string, args ...interface{}) {
	l.log.Warnj(newEntry(msg, args).fields())
}

func (l GommonLogger) Error(msg string, args ...interface{}) {
	l.log.Errorj(newEntry(msg, args).fields())
}

func (l GommonLogger) Fatal(msg string, args ...interface{}) {
	l.log.Fatalj(newEntry(msg, args).fields())
}
