package migrate

import (
	"regexp"
	"strings"
)

var (
	commentRe = regexp.MustCompile(`^\s*--\s*(.*?)\s*$`)
	markerRe  = regexp.MustCompile(`^migrate:\s*(\S*)`)
)

// ParseDocument parses one migration file's text into its four sections.
//
// Section markers are comment lines of the form '-- migrate: <name>', where
// <name> is one of prolog, up, down or epilog; any other name is a
// MalformedMigrationError. Text before the first marker belongs to prolog.
// Each section's accumulated text is split into statements independently, so
// splitting never crosses a section boundary.
//
// If the file has an empty up section and a non-empty prolog, the prolog is
// promoted to up. The promotion happens here, exactly once; the returned
// Sections are final.
func ParseDocument(text string, splitter Splitter) (Sections, error) {
	if splitter == nil {
		splitter = LineSplitter{}
	}

	bodies := map[string][]string{}
	section := SectionProlog
	for line := range strings.Lines(text) {
		line = strings.TrimRight(line, "\n")
		if c := commentRe.FindStringSubmatch(line); c != nil {
			if k := markerRe.FindStringSubmatch(c[1]); k != nil {
				switch k[1] {
				case SectionProlog, SectionUp, SectionDown, SectionEpilog:
					section = k[1]
				default:
					return Sections{}, MalformedMigrationError{Section: k[1]}
				}
				continue
			}
		}
		bodies[section] = append(bodies[section], line)
	}

	split := func(name string) []string {
		return splitter.Split(strings.Join(bodies[name], "\n"))
	}
	secs := Sections{
		Prolog: split(SectionProlog),
		Up:     split(SectionUp),
		Down:   split(SectionDown),
		Epilog: split(SectionEpilog),
	}

	if len(secs.Up) == 0 && len(secs.Prolog) > 0 {
		secs.Up = secs.Prolog
		secs.Prolog = nil
	}

	return secs, nil
}
