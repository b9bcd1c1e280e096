package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Direction is the direction a migration is executed in.
type Direction string

// Migration execution directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Migration section names, in logical execution order.
const (
	SectionProlog = "prolog"
	SectionUp     = "up"
	SectionDown   = "down"
	SectionEpilog = "epilog"
)

// Sections holds the ordered statement sequences of one migration file,
// keyed by the four recognized section names.
type Sections struct {
	Prolog []string
	Up     []string
	Down   []string
	Epilog []string
}

// Get returns the statements of the named section.
func (s Sections) Get(name string) []string {
	switch name {
	case SectionProlog:
		return s.Prolog
	case SectionUp:
		return s.Up
	case SectionDown:
		return s.Down
	case SectionEpilog:
		return s.Epilog
	}
	return nil
}

// Migration is a single versioned changeset of SQL statements. It is created
// by the Repository when scanning a directory, and is immutable afterwards.
type Migration struct {
	// Sequence is the sortable prefix extracted from the filename. It defines
	// the total order over all migrations in a repository.
	Sequence string
	// Name is the human-readable slug extracted from the filename.
	Name string
	// Filename is the name of the file the migration was parsed from.
	Filename string
	Sections Sections
}

// Ref returns the canonical "<sequence>-<name>" identifier of the migration.
func (m *Migration) Ref() string {
	return fmt.Sprintf("%s-%s", m.Sequence, m.Name)
}

// Reversible reports whether the migration has a down section.
func (m *Migration) Reversible() bool {
	return len(m.Sections.Down) > 0
}

// Matches reports whether ref identifies this migration. Accepted forms are
// the bare name, the "<sequence>-<name>" identifier, and the full filename.
func (m *Migration) Matches(ref string) bool {
	return ref == m.Name || ref == m.Ref() || ref == m.Filename
}

// Hash returns the hex-encoded SHA-256 digest of the migration's statements,
// covering all four sections in logical order. It is stored alongside the
// applied record, so that later file edits can be detected as drift.
func (m *Migration) Hash() string {
	h := sha256.New()
	for _, section := range []string{SectionProlog, SectionUp, SectionDown, SectionEpilog} {
		h.Write([]byte(strings.Join(m.Sections.Get(section), "\n")))
	}
	return hex.EncodeToString(h.Sum(nil))
}
