package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "go.hackfix.me/strata/app/context"
	"go.hackfix.me/strata/migrate"
)

// loadMigrationFile parses a single migration file at an arbitrary path,
// outside of any repository.
func loadMigrationFile(appCtx *actx.Context, path string) (*migrate.Migration, error) {
	text, err := vfs.ReadFile(appCtx.FS, path)
	if err != nil {
		return nil, fmt.Errorf("failed reading migration file '%s': %w", path, err)
	}
	sections, err := migrate.ParseDocument(string(text), nil)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	return &migrate.Migration{
		Name:     strings.TrimSuffix(filename, ".sql"),
		Filename: filename,
		Sections: sections,
	}, nil
}

// datePrefix returns the date used for new migration sequences: the forced
// value if set, in YYYYMMDD form, otherwise the current date.
func datePrefix(appCtx *actx.Context, forced string) (time.Time, error) {
	if forced == "" {
		return appCtx.TimeNow(), nil
	}
	date, err := time.Parse("20060102", forced)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s': expected YYYYMMDD format", forced)
	}
	return date, nil
}

// slug joins name arguments into a single migration slug.
func slug(name []string) string {
	return strings.Join(name, "_")
}
