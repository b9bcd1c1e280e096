package cli

import (
	"fmt"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
)

// Create creates a new empty migration file with a fresh sequence.
type Create struct {
	Name []string `arg:"" help:"Migration name; multiple words are joined with underscores."`
	Step int      `help:"Sequence step appended to the date prefix."`
	Date string   `help:"Force the date prefix (YYYYMMDD)."`
}

// Run the create command.
func (c *Create) Run(appCtx *actx.Context, root *CLI) error {
	date, err := datePrefix(appCtx, c.Date)
	if err != nil {
		return err
	}

	filename, err := root.repository(appCtx).Create(slug(c.Name), c.Step, date)
	if err != nil {
		return aerrors.With(err, "directory", root.Directory)
	}
	fmt.Fprintln(appCtx.Stdout, filename)

	return nil
}
