package main

import (
	"bytes"
	"context"
	"database/sql"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/storage/kvstore/pgkv"
	"github.com/trezcool/masomo-portal/tests"
)

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runTests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(context.Background(), args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_help(t *testing.T) {
	var out bytes.Buffer
	cli := &commandLine{out: &out}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "purge: no days", args: []string{"purge"}, wantErr: errHelp},
		{name: "purge: negative days", args: []string{"purge", "-days", "-3"}, wantErr: errHelp},
		{name: "purge: help", args: []string{"purge", "-h"}, wantErr: errHelp},
		{name: "purge: not a number", args: []string{"purge", "-days", "lol"}, wantErrStr: `invalid value "lol" for flag -days: parse error`},
	}
	runTests(t, cli, &out, tests)
}

func Test_commandLine_migrate(t *testing.T) {
	var out bytes.Buffer
	cli := &commandLine{out: &out}

	var ran []string
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up-to", "down-to":
			if _, err := versionArg(command, args); err != nil {
				return err
			}
		case "up", "up-by-one", "down", "redo":
		default:
			return runGoose(command, db, fsys, dir, args...)
		}
		_, err := fs.Stat(fsys, dir+"/20210110090000_create_kv_entry.sql")
		ran = append(ran, command)
		return err
	}
	defer func() { gooseRunFunc = runGoose }()

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: admin migrate up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: admin migrate down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
	}
	runTests(t, cli, &out, tests)
	assert.Equal(t, []string{"up", "up-by-one", "up-to", "down", "down-to", "redo"}, ran)
}

func Test_commandLine_purge(t *testing.T) {
	db := testutil.PrepareDB(t)
	var out bytes.Buffer
	cli := &commandLine{out: &out, db: db, store: pgkv.NewStore(db)}
	ctx := context.Background()

	require.NoError(t, cli.store.Set(ctx, "assignment_draft_a1_stu1", `{"answers":{"0":"A"}}`))
	require.NoError(t, cli.store.Set(ctx, "assignment_draft_a2_stu1", `{"answers":{"0":"B"}}`))
	_, err := db.Exec(
		`UPDATE kv_entry SET updated_at = $1 WHERE key = $2`,
		time.Now().Add(-10*24*time.Hour).UTC(), "assignment_draft_a1_stu1",
	)
	require.NoError(t, err)

	runTests(t, cli, &out, []cliTest{
		{name: "nothing that old", args: []string{"purge", "-days", "30"}, wantOut: "0 entries purged"},
		{name: "abandoned drafts", args: []string{"purge", "-days", "7"}, wantOut: "1 entries purged"},
	})

	_, err = cli.store.Get(ctx, "assignment_draft_a1_stu1")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
	val, err := cli.store.Get(ctx, "assignment_draft_a2_stu1")
	assert.NoError(t, err)
	assert.Equal(t, `{"answers":{"0":"B"}}`, val)
}
