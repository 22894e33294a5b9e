package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/trezcool/masomo-portal/storage/kvstore/pgkv"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	out   io.Writer
	db    *sql.DB
	store *pgkv.Store
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo - migrate the store database")
	fmt.Fprintln(cli.out, "  purge -days N - remove the drafts & quiz clocks not updated for N days")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	purgeCmd := flag.NewFlagSet("purge", flag.ContinueOnError)
	purgeCmd.SetOutput(cli.out)
	purgeDays := purgeCmd.Int("days", 0, "The number of days since the entries were last updated.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			if err == flag.ErrHelp {
				return errHelp
			}
			return err
		}
		if *purgeDays <= 0 {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purge(ctx, time.Duration(*purgeDays)*24*time.Hour)

	default:
		cli.printUsage()
		return errHelp
	}
}
