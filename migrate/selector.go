package migrate

import (
	"context"
	"strconv"
	"strings"

	"go.hackfix.me/strata/db/types"
)

// Selection is a resolved, ordered list of migrations to act upon. Selections
// for up are ordered ascending by sequence; selections for down are ordered
// descending, so the most recently applied migration is reverted first.
type Selection []*Migration

// Resolve parses a user-supplied selector expression against the ordered
// migration list and produces a concrete Selection.
//
// The grammar is:
//   - ”: all migrations
//   - 'name': the single matching migration
//   - 'first..last': an inclusive range; either bound may be omitted, and
//     '..' alone means all
//   - a bare non-negative integer N: the N most recently applied migrations;
//     only legal when direction is down
//
// The bare-integer case is the only one that consults the state store, via the
// querier, for last-applied ordering.
func Resolve(
	ctx context.Context, expr string, ordered []*Migration, direction Direction,
	store Store, d types.Querier,
) (Selection, error) {
	var sel Selection
	var err error

	switch {
	case expr == "":
		sel = Selection(ordered)
	case strings.Contains(expr, ".."):
		sel, err = resolveRange(expr, ordered)
	default:
		if n, convErr := strconv.Atoi(expr); convErr == nil {
			if direction != DirectionDown {
				return nil, InvalidSelectorError{
					Expr: expr, Reason: "a bare count is only valid for rollback",
				}
			}
			if n < 0 {
				return nil, InvalidSelectorError{Expr: expr, Reason: "count must be non-negative"}
			}
			sel, err = resolveCount(ctx, n, ordered, store, d)
		} else {
			sel, err = resolveName(expr, ordered)
		}
	}
	if err != nil {
		return nil, err
	}

	if direction == DirectionDown {
		reversed := make(Selection, len(sel))
		for i, m := range sel {
			reversed[len(sel)-1-i] = m
		}
		sel = reversed
	}

	return sel, nil
}

func resolveName(expr string, ordered []*Migration) (Selection, error) {
	for _, m := range ordered {
		if m.Matches(expr) {
			return Selection{m}, nil
		}
	}
	return nil, UnknownMigrationError{Ref: expr}
}

func resolveRange(expr string, ordered []*Migration) (Selection, error) {
	bounds := strings.SplitN(expr, "..", 2)
	first, last := strings.TrimSpace(bounds[0]), strings.TrimSpace(bounds[1])
	if strings.Contains(last, "..") {
		return nil, InvalidSelectorError{Expr: expr, Reason: "more than one '..'"}
	}

	start, end := 0, len(ordered)-1
	if first != "" {
		idx, err := indexOf(first, ordered)
		if err != nil {
			return nil, err
		}
		start = idx
	}
	if last != "" {
		idx, err := indexOf(last, ordered)
		if err != nil {
			return nil, err
		}
		end = idx
	}

	if len(ordered) == 0 {
		return nil, nil
	}
	if start > end {
		return nil, InvalidRangeError{First: first, Last: last}
	}

	return Selection(ordered[start : end+1]), nil
}

// resolveCount selects the n most recently applied migrations, by applied
// record order rather than file order. If fewer than n are applied, all
// applied ones are selected.
func resolveCount(
	ctx context.Context, n int, ordered []*Migration, store Store, d types.Querier,
) (Selection, error) {
	records, err := store.Applied(ctx, d)
	if err != nil {
		return nil, err
	}

	bySeq := map[string]*Migration{}
	for _, m := range ordered {
		bySeq[m.Sequence] = m
	}

	// Records are ordered by application time ascending, so walk them from the
	// end. Records without a matching file are skipped; they can't be acted on.
	sel := make(Selection, 0, n)
	for i := len(records) - 1; i >= 0 && len(sel) < n; i-- {
		if m, ok := bySeq[records[i].Sequence]; ok {
			sel = append(sel, m)
		}
	}

	// Ascending order; Resolve reverses for the down direction.
	reversed := make(Selection, len(sel))
	for i, m := range sel {
		reversed[len(sel)-1-i] = m
	}

	return reversed, nil
}

func indexOf(ref string, ordered []*Migration) (int, error) {
	for i, m := range ordered {
		if m.Matches(ref) {
			return i, nil
		}
	}
	return 0, UnknownMigrationError{Ref: ref}
}
