package cli

import (
	"fmt"
	"os"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/dump"
)

// Dump exports the existing database schema and data as migration files.
type Dump struct {
	Tables      []string `arg:"" optional:"" help:"Tables to dump; '*' means all, '-name' excludes a table."`
	Output      string   `short:"o" help:"Write to a file instead of stdout."`
	Split       bool     `help:"Write each table to its own file in the migrations directory."`
	AddDown     bool     `help:"Add a generated down section (may not be useful without --split)."`
	MayFail     bool     `help:"Prefix emitted statements with '@' so they're tolerated on re-runs."`
	CreateTable bool     `default:"true" negatable:"" help:"Include table schema statements."`
	Insert      bool     `help:"Include row data as INSERT statements."`
	Fmt         string   `default:"%04d-%s.sql" help:"Filename format for split dumps, applied to the counter and table name."`
	Counter     int      `short:"c" default:"1" help:"Initial value of the filename counter."`
	Overwrite   bool     `short:"f" help:"Overwrite existing files."`
}

// Run the dump command.
func (c *Dump) Run(appCtx *actx.Context, root *CLI) error {
	dumper := dump.New(appCtx.DB, appCtx.Logger, dump.Options{
		Tables:        c.Tables,
		CreateTable:   c.CreateTable,
		Insert:        c.Insert,
		AddDown:       c.AddDown,
		MayFail:       c.MayFail,
		Format:        c.Fmt,
		Counter:       c.Counter,
		Overwrite:     c.Overwrite,
		TrackingTable: root.Table,
	})

	ctx := appCtx.DB.NewContext()
	if c.Split {
		if err := dumper.DumpSplit(ctx, appCtx.FS, root.Directory); err != nil {
			return aerrors.With(err, "directory", root.Directory)
		}
		return nil
	}

	if c.Output != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if c.Overwrite {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}
		f, err := appCtx.FS.OpenFile(c.Output, flags, 0o644)
		if err != nil {
			return fmt.Errorf("failed creating dump file '%s': %w", c.Output, err)
		}
		defer f.Close()

		return dumper.Dump(ctx, f)
	}

	return dumper.Dump(ctx, appCtx.Stdout)
}
