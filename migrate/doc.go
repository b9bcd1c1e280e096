// Package migrate implements the database migration engine.
//
// Features:
// - Parses migration files into prolog/up/down/epilog statement sections
// - Splits free-form SQL bodies into individual statements (best-effort heuristic)
// - Derives a strict total order over migrations from their filenames
// - Resolves user-supplied selectors (names, ranges, trailing counts) into execution plans
// - Tracks applied migrations in a dedicated database table with content hashes
// - Applies and reverts migrations sequentially, fail-fast, one transaction per migration
package migrate
