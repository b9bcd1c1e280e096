package migrate

import (
	"regexp"
	"strings"
)

// Splitter splits a raw SQL body into an ordered sequence of executable
// statement strings. Splitting is purely syntactic and always succeeds; it may
// produce statements that later fail to execute.
type Splitter interface {
	Split(body string) []string
}

var (
	blankLineRe    = regexp.MustCompile(`^\s*$`)
	commentLineRe  = regexp.MustCompile(`^\s*--`)
	statementEndRe = regexp.MustCompile(`;\s*(--.*)?$`)
)

// LineSplitter is the default Splitter. A statement ends at a line whose last
// non-comment token is a ';'. Full-line comments and blank lines are dropped.
//
// This is a heuristic, not a parser, and it has known failure modes that are
// kept for compatibility: a ';' at the end of a line inside a quoted string or
// block comment incorrectly terminates the statement, and a '--' sequence
// inside a string is mistaken for a trailing comment.
type LineSplitter struct{}

var _ Splitter = LineSplitter{}

// Split implements the Splitter interface.
func (LineSplitter) Split(body string) []string {
	var stmts []string
	var cur []string

	flush := func() {
		if stmt := strings.TrimSpace(strings.Join(cur, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
		cur = cur[:0]
	}

	for line := range strings.Lines(body) {
		line = strings.TrimRight(line, "\n")
		if blankLineRe.MatchString(line) || commentLineRe.MatchString(line) {
			continue
		}
		cur = append(cur, line)
		if statementEndRe.MatchString(line) {
			flush()
		}
	}
	flush()

	return stmts
}

// QuoteAwareSplitter is an alternate Splitter that tracks quoted strings and
// comments, so a ';' inside either doesn't terminate the statement. It is
// still not a full SQL lexer (no dollar-quoting, no nested block comments).
type QuoteAwareSplitter struct{}

var _ Splitter = QuoteAwareSplitter{}

// Split implements the Splitter interface.
func (QuoteAwareSplitter) Split(body string) []string {
	var stmts []string
	var b strings.Builder

	flush := func() {
		if stmt := trimStatement(b.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		b.Reset()
	}

	var inSingle, inDouble, inLineComment, inBlockComment bool
	for i := 0; i < len(body); i++ {
		c := body[i]
		var next byte
		if i+1 < len(body) {
			next = body[i+1]
		}

		b.WriteByte(c)

		switch {
		case inLineComment:
			if c == '\n' {
				inLineComment = false
			}
		case inBlockComment:
			if c == '*' && next == '/' {
				b.WriteByte(next)
				i++
				inBlockComment = false
			}
		case inSingle:
			if c == '\'' {
				// An immediately repeated quote is an escaped quote, not a
				// string terminator.
				if next == '\'' {
					b.WriteByte(next)
					i++
				} else {
					inSingle = false
				}
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		default:
			switch {
			case c == '-' && next == '-':
				inLineComment = true
			case c == '/' && next == '*':
				inBlockComment = true
			case c == '\'':
				inSingle = true
			case c == '"':
				inDouble = true
			case c == ';':
				flush()
			}
		}
	}
	flush()

	return stmts
}

// trimStatement trims a raw statement chunk, discarding it entirely if it
// contains nothing but whitespace and full-line comments.
func trimStatement(chunk string) string {
	onlyComments := true
	for line := range strings.Lines(chunk) {
		if !blankLineRe.MatchString(line) && !commentLineRe.MatchString(line) {
			onlyComments = false
			break
		}
	}
	if onlyComments {
		return ""
	}
	return strings.TrimSpace(chunk)
}
