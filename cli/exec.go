package cli

import (
	"fmt"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/dump"
	"go.hackfix.me/strata/migrate"
)

// Exec runs the sections of arbitrary SQL files through the executor, without
// consulting or updating the tracking table.
type Exec struct {
	Files   []string `arg:"" help:"SQL files to execute."`
	Section []string `help:"Only execute the specified sections."`
}

// Run the exec command.
func (c *Exec) Run(appCtx *actx.Context, root *CLI) error {
	exec, err := root.executor(appCtx)
	if err != nil {
		return err
	}

	allSections := []string{
		migrate.SectionProlog, migrate.SectionUp, migrate.SectionDown, migrate.SectionEpilog,
	}

	ctx := appCtx.DB.NewContext()
	for _, file := range c.Files {
		m, err := loadMigrationFile(appCtx, file)
		if err != nil {
			return err
		}

		sections := dump.FilterSelection(c.Section, allSections)
		if root.DryRun {
			for _, section := range sections {
				for _, stmt := range m.Sections.Get(section) {
					fmt.Fprintln(appCtx.Stdout, stmt)
				}
			}
			continue
		}

		if err = exec.Exec(ctx, appCtx.DB, m, sections); err != nil {
			return aerrors.With(err, "file", file)
		}
	}

	return nil
}
