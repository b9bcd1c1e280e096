package cli

import (
	"errors"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/migrate"
)

// Status shows the state of every migration: pending, applied, or drifted
// (applied, but the file changed since).
type Status struct {
	Selector string `arg:"" optional:"" help:"Migration selector; empty for all."`
	Missing  bool   `help:"Also list applied records that have no migration file."`
}

// Run the status command.
func (c *Status) Run(appCtx *actx.Context, root *CLI) error {
	migrations, err := root.repository(appCtx).Load()
	if err != nil {
		return aerrors.With(err, "directory", root.Directory)
	}

	ctx := appCtx.DB.NewContext()
	store := root.store()
	sel, err := migrate.Resolve(ctx, c.Selector, migrations, migrate.DirectionUp, store, appCtx.DB)
	if err != nil {
		return err
	}

	records, err := store.Applied(ctx, appCtx.DB)
	if err != nil {
		var uerr migrate.UninitializedStateError
		if !errors.As(err, &uerr) {
			return err
		}
		appCtx.Logger.Warn("tracking table doesn't exist; all migrations are pending",
			"table", root.Table)
	}
	bySeq := map[string]migrate.AppliedRecord{}
	for _, rec := range records {
		bySeq[rec.Sequence] = rec
	}

	data := make([][]string, 0, len(sel))
	for _, m := range sel {
		rec, applied := bySeq[m.Sequence]
		switch {
		case !applied:
			data = append(data, []string{"P", m.Ref(), "", m.Hash()})
		case rec.Hash != m.Hash():
			data = append(data, []string{"D", m.Ref(), rec.AppliedAt.Format(timestampFormat), rec.Hash})
		default:
			data = append(data, []string{"A", m.Ref(), rec.AppliedAt.Format(timestampFormat), rec.Hash})
		}
	}

	if c.Missing {
		onDisk := map[string]struct{}{}
		for _, m := range migrations {
			onDisk[m.Sequence] = struct{}{}
		}
		for _, rec := range records {
			if _, ok := onDisk[rec.Sequence]; !ok {
				data = append(data, []string{
					"M", rec.Sequence + "-" + rec.Name, rec.AppliedAt.Format(timestampFormat), rec.Hash,
				})
			}
		}
	}

	if err = renderTable([]string{"State", "Migration", "Applied At", "Hash"}, data, appCtx.Stdout); err != nil {
		return aerrors.NewWithCause("failed rendering status table", err)
	}

	return nil
}

const timestampFormat = "2006-01-02 15:04:05"
