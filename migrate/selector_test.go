package migrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/strata/db/types"
)

// fakeStore serves a fixed list of applied records, in application order.
type fakeStore struct {
	records []AppliedRecord
}

var _ Store = (*fakeStore)(nil)

func (s *fakeStore) EnsureInitialized(_ context.Context, _ types.Querier) error {
	return nil
}

func (s *fakeStore) Applied(_ context.Context, _ types.Querier) ([]AppliedRecord, error) {
	return s.records, nil
}

func (s *fakeStore) Get(_ context.Context, _ types.Querier, seq string) (*AppliedRecord, error) {
	for _, rec := range s.records {
		if rec.Sequence == seq {
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) RecordApplied(_ context.Context, _ types.Querier, rec AppliedRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeStore) RecordReverted(_ context.Context, _ types.Querier, seq string) error {
	for i, rec := range s.records {
		if rec.Sequence == seq {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func testMigrations() []*Migration {
	return []*Migration{
		{Sequence: "001", Name: "init", Filename: "001-init.sql"},
		{Sequence: "002", Name: "seed", Filename: "002-seed.sql"},
		{Sequence: "003", Name: "index", Filename: "003-index.sql"},
		{Sequence: "004", Name: "views", Filename: "004-views.sql"},
	}
}

func refs(sel Selection) []string {
	out := make([]string, len(sel))
	for i, m := range sel {
		out[i] = m.Ref()
	}
	return out
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		expr      string
		direction Direction
		exp       []string
		expErr    string
	}{
		{
			name:      "empty_selects_all",
			expr:      "",
			direction: DirectionUp,
			exp:       []string{"001-init", "002-seed", "003-index", "004-views"},
		},
		{
			name:      "single_name",
			expr:      "seed",
			direction: DirectionUp,
			exp:       []string{"002-seed"},
		},
		{
			name:      "single_name_with_sequence_prefix",
			expr:      "002-seed",
			direction: DirectionUp,
			exp:       []string{"002-seed"},
		},
		{
			name:      "single_filename",
			expr:      "002-seed.sql",
			direction: DirectionUp,
			exp:       []string{"002-seed"},
		},
		{
			name:      "unknown_name",
			expr:      "nope",
			direction: DirectionUp,
			expErr:    "unknown migration 'nope'",
		},
		{
			name:      "full_range",
			expr:      "..",
			direction: DirectionUp,
			exp:       []string{"001-init", "002-seed", "003-index", "004-views"},
		},
		{
			name:      "bounded_range",
			expr:      "seed..index",
			direction: DirectionUp,
			exp:       []string{"002-seed", "003-index"},
		},
		{
			name:      "open_start",
			expr:      "..index",
			direction: DirectionUp,
			exp:       []string{"001-init", "002-seed", "003-index"},
		},
		{
			name:      "open_end",
			expr:      "seed..",
			direction: DirectionUp,
			exp:       []string{"002-seed", "003-index", "004-views"},
		},
		{
			name:      "inverted_range",
			expr:      "index..seed",
			direction: DirectionUp,
			expErr:    "invalid migration range: 'index' sorts after 'seed'",
		},
		{
			name:      "unknown_range_bound",
			expr:      "nope..",
			direction: DirectionUp,
			expErr:    "unknown migration 'nope'",
		},
		{
			name:      "double_range",
			expr:      "a..b..c",
			direction: DirectionUp,
			expErr:    "invalid selector 'a..b..c': more than one '..'",
		},
		{
			name:      "count_up_is_invalid",
			expr:      "2",
			direction: DirectionUp,
			expErr:    "invalid selector '2': a bare count is only valid for rollback",
		},
		{
			name:      "down_is_descending",
			expr:      "..",
			direction: DirectionDown,
			exp:       []string{"004-views", "003-index", "002-seed", "001-init"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sel, err := Resolve(
				context.Background(), tt.expr, testMigrations(), tt.direction, &fakeStore{}, nil)
			if tt.expErr != "" {
				assert.EqualError(t, err, tt.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exp, refs(sel))
		})
	}
}

func TestResolveRangeRoundTrip(t *testing.T) {
	t.Parallel()

	// 'first..' + '..last' over the full list selects the same migrations as
	// 'first..last', and '..' selects everything.
	migrations := testMigrations()
	full, err := Resolve(context.Background(), "init..views", migrations, DirectionUp, nil, nil)
	require.NoError(t, err)
	openStart, err := Resolve(context.Background(), "..views", migrations, DirectionUp, nil, nil)
	require.NoError(t, err)
	openEnd, err := Resolve(context.Background(), "init..", migrations, DirectionUp, nil, nil)
	require.NoError(t, err)
	all, err := Resolve(context.Background(), "..", migrations, DirectionUp, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, refs(full), refs(openStart))
	assert.Equal(t, refs(full), refs(openEnd))
	assert.Equal(t, refs(full), refs(all))
}

func TestResolveCount(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// 003 was applied before 001 and 002, out of file order.
	store := &fakeStore{records: []AppliedRecord{
		{Sequence: "003", Name: "index", AppliedAt: now},
		{Sequence: "001", Name: "init", AppliedAt: now.Add(time.Minute)},
		{Sequence: "002", Name: "seed", AppliedAt: now.Add(2 * time.Minute)},
	}}

	tests := []struct {
		name string
		expr string
		exp  []string
	}{
		{
			// The two most recently applied, most recent first.
			name: "last_two",
			expr: "2",
			exp:  []string{"002-seed", "001-init"},
		},
		{
			// Count ordering follows application time, not file order.
			name: "all_applied",
			expr: "3",
			exp:  []string{"002-seed", "001-init", "003-index"},
		},
		{
			// Over-selection is not an error; all applied ones are selected.
			name: "overselection",
			expr: "10",
			exp:  []string{"002-seed", "001-init", "003-index"},
		},
		{
			name: "zero",
			expr: "0",
			exp:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sel, err := Resolve(
				context.Background(), tt.expr, testMigrations(), DirectionDown, store, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.exp, refs(sel))
		})
	}
}

func TestResolveCountNegative(t *testing.T) {
	t.Parallel()

	_, err := Resolve(context.Background(), "-1", testMigrations(), DirectionDown, &fakeStore{}, nil)
	assert.EqualError(t, err, "invalid selector '-1': count must be non-negative")
}
