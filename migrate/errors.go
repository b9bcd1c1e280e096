package migrate

import (
	"fmt"
)

// MalformedMigrationError is returned when a migration file contains a section
// marker with an unrecognized name.
type MalformedMigrationError struct {
	File    string
	Section string
}

// Error returns a string representation of the error.
func (e MalformedMigrationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("unknown migration section '%s'", e.Section)
	}
	return fmt.Sprintf("unknown migration section '%s' in %s", e.Section, e.File)
}

// DuplicateSequenceError is returned when two migration files resolve to the
// same sequence.
type DuplicateSequenceError struct {
	Sequence string
	Files    [2]string
}

// Error returns a string representation of the error.
func (e DuplicateSequenceError) Error() string {
	return fmt.Sprintf("duplicate migration sequence %s: %s and %s",
		e.Sequence, e.Files[0], e.Files[1])
}

// UnknownMigrationError is returned when a selector refers to a migration that
// doesn't exist in the repository.
type UnknownMigrationError struct {
	Ref string
}

// Error returns a string representation of the error.
func (e UnknownMigrationError) Error() string {
	return fmt.Sprintf("unknown migration '%s'", e.Ref)
}

// InvalidRangeError is returned when the first bound of a range selector sorts
// after the last bound.
type InvalidRangeError struct {
	First, Last string
}

// Error returns a string representation of the error.
func (e InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid migration range: '%s' sorts after '%s'", e.First, e.Last)
}

// InvalidSelectorError is returned for selector expressions that can't be
// parsed, or that are illegal for the requested direction.
type InvalidSelectorError struct {
	Expr   string
	Reason string
}

// Error returns a string representation of the error.
func (e InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector '%s': %s", e.Expr, e.Reason)
}

// IrreversibleMigrationError is returned when a revert is requested for a
// migration that has no down section.
type IrreversibleMigrationError struct {
	Migration string
}

// Error returns a string representation of the error.
func (e IrreversibleMigrationError) Error() string {
	return fmt.Sprintf("migration %s has no down section and can't be reverted", e.Migration)
}

// ExecutionError is returned when a statement fails against the target
// database. It records which migration, section and statement index failed.
type ExecutionError struct {
	Migration string
	Section   string
	Index     int
	Err       error
}

// Error returns a string representation of the error.
func (e ExecutionError) Error() string {
	return fmt.Sprintf("migration %s failed at %s statement %d: %s",
		e.Migration, e.Section, e.Index, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e ExecutionError) Unwrap() error {
	return e.Err
}

// UninitializedStateError is returned when the migration tracking table
// doesn't exist yet, i.e. before 'install' was run.
type UninitializedStateError struct {
	Table string
}

// Error returns a string representation of the error.
func (e UninitializedStateError) Error() string {
	return fmt.Sprintf("migration tracking table '%s' doesn't exist; run 'install' first", e.Table)
}
