package cli

import (
	"fmt"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
)

// Install creates the migration tracking table, the migrations directory, and
// the bootstrap migration file that documents both. The bootstrap migration
// stays pending until the next up run, which records it as applied; its
// CREATE statement is tolerated, since the table already exists by then.
type Install struct {
	Name []string `arg:"" optional:"" help:"Name of the bootstrap migration file."`
	Step int      `help:"Sequence step appended to the date prefix."`
	Date string   `help:"Force the date prefix (YYYYMMDD)."`
}

// Run the install command.
func (c *Install) Run(appCtx *actx.Context, root *CLI) error {
	date, err := datePrefix(appCtx, c.Date)
	if err != nil {
		return err
	}

	name := slug(c.Name)
	if name == "" {
		name = "create-tracking-table"
	}

	filename, err := root.repository(appCtx).Install(root.Table, name, c.Step, date)
	if err != nil {
		return aerrors.With(err, "directory", root.Directory)
	}

	if !root.DryRun {
		if err = root.store().EnsureInitialized(appCtx.DB.NewContext(), appCtx.DB); err != nil {
			return aerrors.With(err, "table", root.Table)
		}
	}
	fmt.Fprintln(appCtx.Stdout, filename)

	return nil
}
