package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	gommonlog "github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/gradebook"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/core/viewer"
	"github.com/trezcool/masomo-portal/services/lmsapi"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
	"github.com/trezcool/masomo-portal/storage/kvstore"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "PORTAL : ", log.LstdFlags)

	conf := core.NewConfig()
	if conf.Store.Driver == core.StoreMemory {
		conf.Store.Driver = core.StoreBadger // the CLI state outlives the process
	}

	level := gommonlog.WARN
	if conf.Debug {
		level = gommonlog.DEBUG
	}
	appLogger := logsvc.NewGommonLogger(os.Stderr, "PORTAL", level)

	store, closeStore, err := kvstore.Open(conf, appLogger)
	errAndDie(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	session := user.NewSession(store)
	lms := lmsapi.NewClient(conf, session)
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		out:        os.Stdout,
		session:    session,
		viewer:     viewer.NewService(lms, store, appLogger),
		grades:     gradebook.NewService(lms, appLogger),
		validate:   validate,
		translator: translator,
	}
	err = cli.run(ctx, os.Args)

	stop()
	if cErr := closeStore(); cErr != nil {
		logger.Printf("closing store: %s", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
