package cli

import (
	"fmt"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/migrate"
)

// Show prints the selected migrations back out in their canonical section
// format, after parsing and statement splitting.
type Show struct {
	Selector string `arg:"" optional:"" help:"Migration selector; empty for all."`
}

// Run the show command.
func (c *Show) Run(appCtx *actx.Context, root *CLI) error {
	migrations, err := root.repository(appCtx).Load()
	if err != nil {
		return aerrors.With(err, "directory", root.Directory)
	}

	sel, err := migrate.Resolve(
		appCtx.Ctx, c.Selector, migrations, migrate.DirectionUp, root.store(), appCtx.DB)
	if err != nil {
		return err
	}

	for _, m := range sel {
		fmt.Fprintf(appCtx.Stdout, "-- Migration %s\n", m.Ref())
		for _, section := range []string{
			migrate.SectionProlog, migrate.SectionUp, migrate.SectionDown, migrate.SectionEpilog,
		} {
			stmts := m.Sections.Get(section)
			if len(stmts) == 0 {
				continue
			}
			fmt.Fprintf(appCtx.Stdout, "-- migrate: %s\n", section)
			for _, stmt := range stmts {
				fmt.Fprintln(appCtx.Stdout, stmt)
			}
		}
	}

	return nil
}
