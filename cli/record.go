package cli

import (
	"fmt"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/migrate"
)

// Record marks migrations as applied or reverted in the tracking table without
// executing their statements. Useful when a database was changed outside of
// the tool, or for repairing drifted records.
type Record struct {
	Selector string `arg:"" optional:"" help:"Migration selector; empty for all."`
	Unset    bool   `help:"Remove the records instead of creating them."`
}

// Run the record command.
func (c *Record) Run(appCtx *actx.Context, root *CLI) error {
	migrations, err := root.repository(appCtx).Load()
	if err != nil {
		return aerrors.With(err, "directory", root.Directory)
	}

	direction := migrate.DirectionUp
	if c.Unset {
		direction = migrate.DirectionDown
	}

	ctx := appCtx.DB.NewContext()
	store := root.store()
	sel, err := migrate.Resolve(ctx, c.Selector, migrations, direction, store, appCtx.DB)
	if err != nil {
		return err
	}

	for _, m := range sel {
		if root.DryRun {
			fmt.Fprintln(appCtx.Stdout, m.Ref())
			continue
		}

		if c.Unset {
			err = store.RecordReverted(ctx, appCtx.DB, m.Sequence)
		} else {
			err = store.RecordApplied(ctx, appCtx.DB, migrate.AppliedRecord{
				Sequence:  m.Sequence,
				Name:      m.Name,
				AppliedAt: appCtx.TimeNow().UTC(),
				Hash:      m.Hash(),
			})
		}
		if err != nil {
			return aerrors.With(err, "migration", m.Ref())
		}
		fmt.Fprintln(appCtx.Stdout, m.Ref())
	}

	return nil
}
