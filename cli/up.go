package cli

import (
	"fmt"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/migrate"
)

// Up applies pending migrations in ascending sequence order.
type Up struct {
	Selector string `arg:"" optional:"" help:"Migration selector: a name, a 'first..last' range, or empty for all."`
}

// Run the up command.
func (c *Up) Run(appCtx *actx.Context, root *CLI) error {
	migrations, err := root.repository(appCtx).Load()
	if err != nil {
		return aerrors.With(err, "directory", root.Directory)
	}

	ctx := appCtx.DB.NewContext()
	sel, err := migrate.Resolve(ctx, c.Selector, migrations, migrate.DirectionUp, root.store(), appCtx.DB)
	if err != nil {
		return err
	}

	exec, err := root.executor(appCtx)
	if err != nil {
		return err
	}

	if root.DryRun {
		plan, err := exec.Plan(ctx, appCtx.DB, sel, migrate.DirectionUp)
		if err != nil {
			return err
		}
		for _, m := range plan {
			fmt.Fprintln(appCtx.Stdout, m.Ref())
		}
		return nil
	}

	applied, err := exec.Apply(ctx, appCtx.DB, sel)
	for _, m := range applied {
		fmt.Fprintln(appCtx.Stdout, m.Ref())
	}
	if err != nil {
		return aerrors.With(err, "direction", migrate.DirectionUp)
	}

	return nil
}
