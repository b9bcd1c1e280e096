package cli

import (
	"fmt"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/migrate"
)

// Down reverts applied migrations, most recently applied first.
type Down struct {
	Selector string `arg:"" help:"Migration selector: a name, a 'first..last' range, or a count of migrations to revert."`
}

// Run the down command.
func (c *Down) Run(appCtx *actx.Context, root *CLI) error {
	migrations, err := root.repository(appCtx).Load()
	if err != nil {
		return aerrors.With(err, "directory", root.Directory)
	}

	ctx := appCtx.DB.NewContext()
	sel, err := migrate.Resolve(ctx, c.Selector, migrations, migrate.DirectionDown, root.store(), appCtx.DB)
	if err != nil {
		return err
	}

	exec, err := root.executor(appCtx)
	if err != nil {
		return err
	}

	if root.DryRun {
		plan, err := exec.Plan(ctx, appCtx.DB, sel, migrate.DirectionDown)
		if err != nil {
			return err
		}
		for _, m := range plan {
			fmt.Fprintln(appCtx.Stdout, m.Ref())
		}
		return nil
	}

	reverted, err := exec.Revert(ctx, appCtx.DB, sel)
	for _, m := range reverted {
		fmt.Fprintln(appCtx.Stdout, m.Ref())
	}
	if err != nil {
		return aerrors.With(err, "direction", migrate.DirectionDown)
	}

	return nil
}
