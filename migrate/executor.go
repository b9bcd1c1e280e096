package migrate

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"go.hackfix.me/strata/db/types"
)

// A statement prefixed with '@' is tolerated: if it fails, the failure is
// logged and execution continues. The dump formatter emits such statements for
// generated down sections.
var mayFailRe = regexp.MustCompile(`^\s*@`)

// Executor computes and runs execution plans. Statements execute strictly
// sequentially against one connection; later migrations may depend on earlier
// ones' schema changes, so there is no reordering.
type Executor struct {
	store    Store
	logger   *slog.Logger
	template *Migration
}

// ExecutorOption is a function that allows configuring the executor.
type ExecutorOption func(*Executor)

// WithTemplate sets a template migration whose sections wrap every executed
// migration: its prolog and up/down statements run before the migration's
// own, and its epilog statements after.
func WithTemplate(t *Migration) ExecutorOption {
	return func(e *Executor) {
		e.template = t
	}
}

// NewExecutor creates a plan executor backed by the given state store.
func NewExecutor(store Store, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{store: store, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan filters a selection down to the migrations that actually need to run in
// the given direction: for up, migrations not yet applied; for down, only
// applied ones. The selection's order is preserved.
//
// An uninitialized state store is tolerated for the up direction, since the
// bootstrap migration that creates the tracking table is itself applied
// through a plan.
func (e *Executor) Plan(
	ctx context.Context, d types.Querier, sel Selection, direction Direction,
) (Selection, error) {
	records, err := e.store.Applied(ctx, d)
	if err != nil {
		var uerr UninitializedStateError
		if direction == DirectionUp && errors.As(err, &uerr) {
			records = nil
		} else {
			return nil, err
		}
	}

	applied := map[string]struct{}{}
	for _, rec := range records {
		applied[rec.Sequence] = struct{}{}
	}

	plan := make(Selection, 0, len(sel))
	for _, m := range sel {
		_, isApplied := applied[m.Sequence]
		switch {
		case direction == DirectionUp && isApplied:
			e.logger.Info("migration already applied", "migration", m.Ref())
		case direction == DirectionDown && !isApplied:
			e.logger.Info("migration not applied", "migration", m.Ref())
		default:
			plan = append(plan, m)
		}
	}

	return plan, nil
}

// Apply runs the up path of every pending migration in the selection, in
// ascending order. Each migration's statements and its applied record are
// committed in a single transaction where the querier supports it; the epilog
// runs after the commit and its failures are reported but don't roll anything
// back. The first failed statement aborts the whole run. Apply returns the
// migrations that were committed, including on error.
func (e *Executor) Apply(ctx context.Context, d types.Querier, sel Selection) ([]*Migration, error) {
	plan, err := e.Plan(ctx, d, sel, DirectionUp)
	if err != nil {
		return nil, err
	}

	done := make([]*Migration, 0, len(plan))
	for _, m := range plan {
		e.logger.Info("applying migration", "direction", DirectionUp, "migration", m.Ref())

		err = inTransaction(ctx, d, func(q types.Querier) error {
			for _, section := range []struct {
				name  string
				stmts []string
			}{
				{SectionProlog, e.templateSection(SectionProlog)},
				{SectionProlog, m.Sections.Prolog},
				{SectionUp, e.templateSection(SectionUp)},
				{SectionUp, m.Sections.Up},
			} {
				if err := e.runStatements(ctx, q, m, section.name, section.stmts); err != nil {
					return err
				}
			}
			return e.store.RecordApplied(ctx, q, AppliedRecord{
				Sequence:  m.Sequence,
				Name:      m.Name,
				AppliedAt: d.TimeNow().UTC(),
				Hash:      m.Hash(),
			})
		})
		if err != nil {
			return done, err
		}
		done = append(done, m)

		// Epilog is best-effort cleanup, not transactional. Its failures don't
		// undo the migration that was just committed.
		for _, stmts := range [][]string{m.Sections.Epilog, e.templateSection(SectionEpilog)} {
			if err = e.runStatements(ctx, d, m, SectionEpilog, stmts); err != nil {
				e.logger.Error("epilog failed", "migration", m.Ref(), "error", err)
			}
		}
	}

	return done, nil
}

// Revert runs the down path of every applied migration in the selection, in
// descending order. A migration without a down section stops the whole plan
// with IrreversibleMigrationError. Revert returns the migrations that were
// reverted, including on error.
func (e *Executor) Revert(ctx context.Context, d types.Querier, sel Selection) ([]*Migration, error) {
	plan, err := e.Plan(ctx, d, sel, DirectionDown)
	if err != nil {
		return nil, err
	}

	done := make([]*Migration, 0, len(plan))
	for _, m := range plan {
		if !m.Reversible() {
			return done, IrreversibleMigrationError{Migration: m.Ref()}
		}
		e.logger.Info("applying migration", "direction", DirectionDown, "migration", m.Ref())

		err = inTransaction(ctx, d, func(q types.Querier) error {
			if err := e.runStatements(ctx, q, m, SectionDown, e.templateSection(SectionDown)); err != nil {
				return err
			}
			if err := e.runStatements(ctx, q, m, SectionDown, m.Sections.Down); err != nil {
				return err
			}
			return e.store.RecordReverted(ctx, q, m.Sequence)
		})
		if err != nil {
			return done, err
		}
		done = append(done, m)
	}

	return done, nil
}

// Exec runs the given sections of a migration without consulting or updating
// the state store. Used by the exec command for arbitrary SQL files.
func (e *Executor) Exec(ctx context.Context, d types.Querier, m *Migration, sections []string) error {
	return inTransaction(ctx, d, func(q types.Querier) error {
		for _, section := range sections {
			// The template wraps the migration: its statements run first in
			// every section except epilog, where they run last.
			batches := [][]string{e.templateSection(section), m.Sections.Get(section)}
			if section == SectionEpilog {
				batches[0], batches[1] = batches[1], batches[0]
			}
			for _, stmts := range batches {
				if err := e.runStatements(ctx, q, m, section, stmts); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// runStatements executes a section's statements in order, aborting the
// migration at the first failure of a non-tolerated statement.
func (e *Executor) runStatements(
	ctx context.Context, d types.Querier, m *Migration, section string, stmts []string,
) error {
	for i, stmt := range stmts {
		mayFail := false
		if mayFailRe.MatchString(stmt) {
			mayFail = true
			stmt = mayFailRe.ReplaceAllString(stmt, "")
		}

		e.logger.Debug("executing statement",
			"migration", m.Ref(), "section", section, "index", i, "may_fail", mayFail)
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			if mayFail {
				e.logger.Warn("statement failed, continuing",
					"migration", m.Ref(), "section", section, "index", i, "error", err)
				continue
			}
			return ExecutionError{Migration: m.Ref(), Section: section, Index: i, Err: err}
		}
	}

	return nil
}

func (e *Executor) templateSection(name string) []string {
	if e.template == nil {
		return nil
	}
	return e.template.Sections.Get(name)
}

// inTransaction runs fn in a single transaction if the querier supports it,
// making the migration's statement batch and its record write one atomic unit.
// Plain queriers run fn directly, with no atomicity guarantee.
func inTransaction(ctx context.Context, d types.Querier, fn func(types.Querier) error) error {
	if txq, ok := d.(types.TxQuerier); ok {
		//nolint:wrapcheck // Transaction errors are wrapped by the caller.
		return txq.InTransaction(ctx, fn)
	}
	return fn(d)
}
