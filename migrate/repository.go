package migrate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Migration files are named '<sequence>-<slug>.sql', where the sequence is a
// numeric or date prefix (e.g. '001' or '202508300').
var filenameRe = regexp.MustCompile(`^(\d+)-(.+)\.sql$`)

const newMigrationTemplate = "-- migrate: up\n\n-- migrate: down\n"

// Repository scans a directory for migration files and produces Migration
// entities in a strict total order. Files that don't match the naming
// convention are skipped with a warning, so non-migration files (e.g. a
// README) can coexist in the directory.
type Repository struct {
	fs       vfs.FileSystem
	dir      string
	splitter Splitter
	logger   *slog.Logger
}

// NewRepository creates a migration repository over the given directory.
// A nil splitter defaults to the LineSplitter.
func NewRepository(fsys vfs.FileSystem, dir string, splitter Splitter, logger *slog.Logger) *Repository {
	if splitter == nil {
		splitter = LineSplitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{fs: fsys, dir: dir, splitter: splitter, logger: logger}
}

// Dir returns the directory the repository scans.
func (r *Repository) Dir() string {
	return r.dir
}

// Load scans the directory and returns all migrations ordered ascending by
// sequence. Sequences are compared lexically, which sorts both zero-padded
// numeric and date prefixes correctly. Two files resolving to the same
// sequence are an error.
func (r *Repository) Load() ([]*Migration, error) {
	entries, err := vfs.ReadDir(r.fs, r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory '%s': %w", r.dir, err)
	}

	var migrations []*Migration
	seqFiles := map[string]string{}
	for _, entry := range entries {
		groups := filenameRe.FindStringSubmatch(entry.Name())
		if entry.IsDir() || groups == nil {
			r.logger.Warn("skipping non-migration file", "file", entry.Name())
			continue
		}

		seq, name := groups[1], groups[2]
		if prev, ok := seqFiles[seq]; ok {
			return nil, DuplicateSequenceError{Sequence: seq, Files: [2]string{prev, entry.Name()}}
		}
		seqFiles[seq] = entry.Name()

		m, err := r.parseFile(entry.Name(), seq, name)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Sequence < migrations[j].Sequence
	})

	return migrations, nil
}

// ParseFile loads and parses a single migration file by name, without
// requiring it to match the naming convention. Used by the exec command.
func (r *Repository) ParseFile(filename string) (*Migration, error) {
	name := strings.TrimSuffix(filename, ".sql")
	seq := ""
	if groups := filenameRe.FindStringSubmatch(filename); groups != nil {
		seq, name = groups[1], groups[2]
	}
	return r.parseFile(filename, seq, name)
}

func (r *Repository) parseFile(filename, seq, name string) (*Migration, error) {
	text, err := vfs.ReadFile(r.fs, filepath.Join(r.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed reading migration file '%s': %w", filename, err)
	}
	sections, err := ParseDocument(string(text), r.splitter)
	if err != nil {
		var merr MalformedMigrationError
		if errors.As(err, &merr) {
			merr.File = filename
			return nil, merr
		}
		return nil, err
	}

	return &Migration{
		Sequence: seq,
		Name:     name,
		Filename: filename,
		Sections: sections,
	}, nil
}

// Create writes a new empty migration file named after the given slug, with a
// date-based sequence strictly greater than any existing one. It returns the
// name of the created file. The step is appended to the date prefix, and is
// bumped as needed to keep the new sequence strictly greater.
func (r *Repository) Create(name string, step int, date time.Time) (string, error) {
	existing, err := r.Load()
	if err != nil {
		return "", err
	}

	var maxSeq string
	if len(existing) > 0 {
		maxSeq = existing[len(existing)-1].Sequence
	}

	// The comparison is lexical, matching Load's ordering. Crossing a digit
	// width boundary skips steps (an existing step 9 bumps straight to 90,
	// since "...10".."...89" sort below "...9"), but the result is always
	// strictly greater than every existing sequence, which is all that
	// matters.
	seq := fmt.Sprintf("%s%d", date.Format("20060102"), step)
	for seq <= maxSeq {
		step++
		seq = fmt.Sprintf("%s%d", date.Format("20060102"), step)
	}

	filename := fmt.Sprintf("%s-%s.sql", seq, name)
	if err = r.writeNew(filename, newMigrationTemplate); err != nil {
		return "", err
	}

	return filename, nil
}

// Install creates the migrations directory if needed, and writes the bootstrap
// migration that creates the given tracking table. The CREATE statement is
// tolerated ('@' prefix), since the table is usually created directly by the
// state store before the bootstrap migration is applied. It returns the name
// of the created file.
func (r *Repository) Install(table, name string, step int, date time.Time) (string, error) {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed creating migrations directory '%s': %w", r.dir, err)
	}

	content := fmt.Sprintf(`-- migrate: up
@CREATE TABLE "%s" (
    sequence VARCHAR(255),
    name VARCHAR(255),
    applied_at DATETIME,
    hash VARCHAR(64),
    UNIQUE(sequence)
);

-- migrate: down
DROP TABLE "%s";
`, table, table)

	filename := fmt.Sprintf("%s%d-%s.sql", date.Format("20060102"), step, name)
	if err := r.writeNew(filename, content); err != nil {
		return "", err
	}

	return filename, nil
}

func (r *Repository) writeNew(filename, content string) error {
	path := filepath.Join(r.dir, filename)
	f, err := r.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed creating migration file '%s': %w", filename, err)
	}
	defer f.Close()

	if _, err = f.Write([]byte(content)); err != nil {
		return fmt.Errorf("failed writing migration file '%s': %w", filename, err)
	}

	return nil
}
