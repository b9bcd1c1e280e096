// Package dump exports an existing SQLite database's schema and data as files
// compatible with the migration file format, so a database can be bootstrapped
// into a migration repository.
package dump

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/strata/db/types"
)

// Options configure what a dump includes and how it is rendered.
type Options struct {
	// Tables selects which tables to dump. An empty selection or a '*' entry
	// means all tables; a '-name' entry excludes a table.
	Tables []string
	// CreateTable includes table schema statements.
	CreateTable bool
	// Insert includes row data as INSERT statements.
	Insert bool
	// AddDown appends a generated down section reversing the dumped schema.
	AddDown bool
	// MayFail prefixes emitted statements with '@', so re-running them against
	// a non-empty database doesn't abort the migration.
	MayFail bool
	// Format is the fmt template for split dump filenames, applied to the
	// counter and table name.
	Format string
	// Counter is the initial value of the filename counter.
	Counter int
	// Overwrite allows replacing existing files in split mode.
	Overwrite bool
	// TrackingTable is excluded from dumps.
	TrackingTable string
}

// Dumper renders a database snapshot as migration files.
type Dumper struct {
	d      types.Querier
	logger *slog.Logger
	opts   Options
}

// New creates a Dumper over the given database connection.
func New(d types.Querier, logger *slog.Logger, opts Options) *Dumper {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Format == "" {
		opts.Format = "%04d-%s.sql"
	}
	if opts.Counter == 0 {
		opts.Counter = 1
	}
	return &Dumper{d: d, logger: logger, opts: opts}
}

// Dump writes all selected tables to a single writer.
func (dp *Dumper) Dump(ctx context.Context, w io.Writer) error {
	tables, err := dp.tables(ctx)
	if err != nil {
		return err
	}

	for _, tbl := range tables {
		if err = dp.dumpTable(ctx, w, tbl); err != nil {
			return err
		}
	}

	return nil
}

// DumpSplit writes each selected table to its own migration file in dir,
// named by the filename format and a running counter.
func (dp *Dumper) DumpSplit(ctx context.Context, fsys vfs.FileSystem, dir string) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed creating dump directory '%s': %w", dir, err)
	}

	tables, err := dp.tables(ctx)
	if err != nil {
		return err
	}

	counter := dp.opts.Counter
	for _, tbl := range tables {
		filename := fmt.Sprintf(dp.opts.Format, counter, tbl.name)
		if err = dp.dumpTableFile(ctx, fsys, filepath.Join(dir, filename), tbl); err != nil {
			return err
		}
		counter++
	}

	return nil
}

type table struct {
	name      string
	createSQL string
}

// tables returns the selected user tables, excluding SQLite internals and the
// migration tracking table.
func (dp *Dumper) tables(ctx context.Context) (tables []table, rerr error) {
	query := `SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name ASC`

	rows, err := dp.d.QueryContext(ctx, query)
	if err != nil {
		return nil, types.LoadError{ModelName: "tables", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing tables rows: %w", err)
		}
	}()

	var all []table
	var names []string
	for rows.Next() {
		var tbl table
		if err = rows.Scan(&tbl.name, &tbl.createSQL); err != nil {
			return nil, types.ScanError{ModelName: "table", Err: err}
		}
		if tbl.name == dp.opts.TrackingTable {
			continue
		}
		all = append(all, tbl)
		names = append(names, tbl.name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over tables rows: %w", err)
	}

	byName := map[string]table{}
	for _, tbl := range all {
		byName[tbl.name] = tbl
	}
	for _, name := range FilterSelection(dp.opts.Tables, names) {
		tables = append(tables, byName[name])
	}

	return tables, nil
}

func (dp *Dumper) dumpTableFile(ctx context.Context, fsys vfs.FileSystem, path string, tbl table) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if dp.opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	dp.logger.Debug("creating dump file", "path", path)
	f, err := fsys.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed creating dump file '%s': %w", path, err)
	}
	defer f.Close()

	return dp.dumpTable(ctx, f, tbl)
}

func (dp *Dumper) dumpTable(ctx context.Context, w io.Writer, tbl table) error {
	prefix := ""
	if dp.opts.MayFail {
		prefix = "@"
	}

	if dp.opts.CreateTable {
		dp.logger.Info("dumping table schema", "table", tbl.name)
		if _, err := fmt.Fprintf(w, "-- Table: %s\n%s%s;\n", tbl.name, prefix, tbl.createSQL); err != nil {
			return fmt.Errorf("failed writing table schema: %w", err)
		}
	}

	if dp.opts.Insert {
		if err := dp.dumpValues(ctx, w, tbl.name, prefix); err != nil {
			return err
		}
	}

	if dp.opts.AddDown {
		if _, err := fmt.Fprintln(w, "-- migrate: down"); err != nil {
			return fmt.Errorf("failed writing down section: %w", err)
		}
		var down string
		switch {
		case dp.opts.CreateTable:
			down = fmt.Sprintf("@DROP TABLE \"%s\";\n", tbl.name)
		case dp.opts.Insert:
			down = fmt.Sprintf("-- You should probably add a WHERE clause on the next line\n"+
				"@DELETE FROM \"%s\";\n", tbl.name)
		}
		if _, err := io.WriteString(w, down); err != nil {
			return fmt.Errorf("failed writing down section: %w", err)
		}
	}

	return nil
}

func (dp *Dumper) dumpValues(ctx context.Context, w io.Writer, tblName, prefix string) (rerr error) {
	//nolint:gosec // The table name comes from sqlite_master, not user input.
	rows, err := dp.d.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, tblName))
	if err != nil {
		return types.LoadError{ModelName: tblName, Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing %s rows: %w", tblName, err)
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed getting %s columns: %w", tblName, err)
	}

	count := 0
	var b strings.Builder
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return types.ScanError{ModelName: tblName, Err: err}
		}

		literals := make([]string, len(values))
		for i, v := range values {
			if literals[i], err = Escape(v); err != nil {
				return fmt.Errorf("failed escaping %s value: %w", tblName, err)
			}
		}

		if count > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "(%s)", strings.Join(literals, ", "))
		count++
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("failed iterating over %s rows: %w", tblName, err)
	}

	if count == 0 {
		return nil
	}

	dp.logger.Info("dumping table data", "table", tblName, "rows", count)
	_, err = fmt.Fprintf(w, "%sINSERT INTO \"%s\" VALUES\n%s;\n", prefix, tblName, b.String())
	if err != nil {
		return fmt.Errorf("failed writing %s values: %w", tblName, err)
	}

	return nil
}

// FilterSelection resolves a selection of names against the existing ones,
// preserving the selection's order. An empty selection or a '*' entry expands
// to all existing names not already selected; a '-name' entry excludes a name.
func FilterSelection(selection, existing []string) []string {
	res := []string{}
	present := map[string]struct{}{}
	star := len(selection) == 0
	existingSet := map[string]struct{}{}
	for _, e := range existing {
		existingSet[e] = struct{}{}
	}

	for _, item := range selection {
		switch {
		case item == "*":
			star = true
		case strings.HasPrefix(item, "-"):
			present[strings.TrimPrefix(item, "-")] = struct{}{}
			star = true
		default:
			if _, ok := existingSet[item]; ok {
				res = append(res, item)
				present[item] = struct{}{}
			}
		}
	}

	if star {
		for _, e := range existing {
			if _, ok := present[e]; !ok {
				res = append(res, e)
			}
		}
	}

	return res
}
