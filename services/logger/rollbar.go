package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo-portal/core"
)

// RollbarLogger reports to rollbar & mirrors every line to a standard logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns the entry into rollbar args: msg, error, request & extras.
// The user becomes the person of the item; the assignment & store key extras are kept as custom data.
func (l RollbarLogger) prepare(e entry) []interface{} {
	if e.person != nil {
		rollbar.SetPerson(e.person.ID, e.person.Name, e.person.Email)
	} else {
		rollbar.ClearPerson()
	}

	args := []interface{}{e.msg}
	if e.err != nil {
		args = append(args, e.err)
	}
	if e.request != nil {
		args = append(args, e.request)
	}
	if len(e.extras) > 0 {
		args = append(args, e.extras)
	}
	return args
}

func (l RollbarLogger) print(e entry) {
	l.std.Println(e.msg)
	for k, v := range e.fields() {
		if k != "msg" {
			l.std.Printf("  %s: %+v\n", k, v)
		}
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Debug(l.prepare(e)...)
	l.print(e)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Info(l.prepare(e)...)
	l.print(e)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Warning(l.prepare(e)...)
	l.print(e)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Error(l.prepare(e)...)
	l.print(e)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Critical(l.prepare(e)...)
	l.print(e)
	l.std.Fatal(msg)
}
