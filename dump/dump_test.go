package dump

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/strata/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	// A unique name per test, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	d, err := db.Open(context.Background(),
		fmt.Sprintf("file:strata-dump-%x?mode=memory&cache=shared", rndName),
		func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func seedTestDB(t *testing.T, d *db.DB) {
	t.Helper()
	ctx := d.NewContext()
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, avatar BLOB)`,
		`CREATE TABLE posts (id INTEGER PRIMARY KEY, body TEXT)`,
		`CREATE TABLE "_strata" (sequence VARCHAR(255), UNIQUE(sequence))`,
		`INSERT INTO users VALUES (1, 'alice', NULL), (2, 'bo''b', X'cafe')`,
	} {
		_, err := d.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func TestDump(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	seedTestDB(t, d)

	dp := New(d, nil, Options{
		CreateTable:   true,
		Insert:        true,
		AddDown:       true,
		MayFail:       true,
		TrackingTable: "_strata",
	})

	var b strings.Builder
	require.NoError(t, dp.Dump(d.NewContext(), &b))
	out := b.String()

	assert.Contains(t, out, "-- Table: users")
	assert.Contains(t, out, "-- Table: posts")
	assert.NotContains(t, out, "_strata")
	assert.Contains(t, out, "@CREATE TABLE users")
	assert.Contains(t, out, "@INSERT INTO \"users\" VALUES\n(1, 'alice', NULL),\n(2, 'bo''b', X'cafe');")
	assert.Contains(t, out, "-- migrate: down")
	assert.Contains(t, out, `@DROP TABLE "users";`)
	// The empty posts table still gets its schema, but no INSERT.
	assert.NotContains(t, out, `INSERT INTO "posts"`)

	// Tables are emitted in name order.
	assert.Less(t, strings.Index(out, "-- Table: posts"), strings.Index(out, "-- Table: users"))
}

func TestDumpInsertOnly(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	seedTestDB(t, d)

	dp := New(d, nil, Options{
		Tables:        []string{"users"},
		Insert:        true,
		AddDown:       true,
		TrackingTable: "_strata",
	})

	var b strings.Builder
	require.NoError(t, dp.Dump(d.NewContext(), &b))
	out := b.String()

	assert.NotContains(t, out, "CREATE TABLE")
	assert.Contains(t, out, "INSERT INTO \"users\" VALUES")
	// Without a schema to drop, the generated down suggests a delete instead.
	assert.Contains(t, out, `@DELETE FROM "users";`)
	assert.Contains(t, out, "WHERE clause")
	assert.NotContains(t, out, "posts")
}

func TestDumpSplit(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	seedTestDB(t, d)

	fsys := memoryfs.New()
	dp := New(d, nil, Options{
		CreateTable:   true,
		Insert:        true,
		Counter:       5,
		TrackingTable: "_strata",
	})

	require.NoError(t, dp.DumpSplit(d.NewContext(), fsys, "/migrations"))

	entries, err := vfs.ReadDir(fsys, "/migrations")
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.Equal(t, []string{"0005-posts.sql", "0006-users.sql"}, names)

	data, err := vfs.ReadFile(fsys, "/migrations/0006-users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE users")

	// Existing files are refused unless overwriting is enabled.
	err = dp.DumpSplit(d.NewContext(), fsys, "/migrations")
	require.Error(t, err)

	dp.opts.Overwrite = true
	require.NoError(t, dp.DumpSplit(d.NewContext(), fsys, "/migrations"))
}

func TestFilterSelection(t *testing.T) {
	t.Parallel()

	existing := []string{"a", "b", "c"}
	testCases := []struct {
		name      string
		selection []string
		exp       []string
	}{
		{"empty_means_all", nil, []string{"a", "b", "c"}},
		{"star_means_all", []string{"*"}, []string{"a", "b", "c"}},
		{"explicit_names_keep_order", []string{"c", "a"}, []string{"c", "a"}},
		{"exclusion_implies_star", []string{"-b"}, []string{"a", "c"}},
		{"explicit_then_star", []string{"b", "*"}, []string{"b", "a", "c"}},
		{"unknown_names_dropped", []string{"x", "b"}, []string{"b"}},
		{"exclude_everything", []string{"-a", "-b", "-c"}, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.exp, FilterSelection(tc.selection, existing))
		})
	}
}

func TestEscape(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		value  any
		exp    string
		expErr string
	}{
		{"nil", nil, "NULL", ""},
		{"string", "hello", "'hello'", ""},
		{"string_with_quote", "it's", "'it''s'", ""},
		{"blob", []byte{0xca, 0xfe}, "X'cafe'", ""},
		{"int64", int64(-42), "-42", ""},
		{"float64", 3.5, "3.5", ""},
		{"bool_true", true, "1", ""},
		{"bool_false", false, "0", ""},
		{
			"time", time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
			"'2025-06-01 12:30:00'", "",
		},
		{"unsupported", struct{}{}, "", "unsupported value type struct {}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Escape(tc.value)
			if tc.expErr != "" {
				assert.EqualError(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, got)
		})
	}
}
