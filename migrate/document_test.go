package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		exp    Sections
		expErr string
	}{
		{
			name: "all_sections",
			text: `-- migrate: prolog
PRAGMA foreign_keys = OFF;
-- migrate: up
CREATE TABLE t(x int);
-- migrate: down
DROP TABLE t;
-- migrate: epilog
PRAGMA foreign_keys = ON;
`,
			exp: Sections{
				Prolog: []string{"PRAGMA foreign_keys = OFF;"},
				Up:     []string{"CREATE TABLE t(x int);"},
				Down:   []string{"DROP TABLE t;"},
				Epilog: []string{"PRAGMA foreign_keys = ON;"},
			},
		},
		{
			name: "sections_in_any_order",
			text: "-- migrate: down\nDROP TABLE t;\n-- migrate: up\nCREATE TABLE t(x int);\n",
			exp: Sections{
				Up:   []string{"CREATE TABLE t(x int);"},
				Down: []string{"DROP TABLE t;"},
			},
		},
		{
			name: "text_before_first_marker_is_prolog_promoted",
			text: "CREATE TABLE t(x int);\n",
			exp: Sections{
				Up: []string{"CREATE TABLE t(x int);"},
			},
		},
		{
			name: "prolog_only_promoted_to_up",
			text: "-- migrate: prolog\nCREATE TABLE t(x int);\n",
			exp: Sections{
				Up: []string{"CREATE TABLE t(x int);"},
			},
		},
		{
			name: "prolog_not_promoted_when_up_present",
			text: "-- migrate: prolog\nPRAGMA foreign_keys = OFF;\n-- migrate: up\nCREATE TABLE t(x int);\n",
			exp: Sections{
				Prolog: []string{"PRAGMA foreign_keys = OFF;"},
				Up:     []string{"CREATE TABLE t(x int);"},
			},
		},
		{
			name: "down_without_up_is_legal",
			text: "-- migrate: down\nDROP TABLE t;\n",
			exp: Sections{
				Down: []string{"DROP TABLE t;"},
			},
		},
		{
			name: "marker_whitespace_tolerant",
			text: "--migrate: up\nSELECT 1;\n--  migrate:   down  \nSELECT 2;\n",
			exp: Sections{
				Up:   []string{"SELECT 1;"},
				Down: []string{"SELECT 2;"},
			},
		},
		{
			name: "splitting_never_crosses_sections",
			text: "-- migrate: up\nCREATE TABLE t(\n-- migrate: down\nDROP TABLE t;\n",
			exp: Sections{
				Up:   []string{"CREATE TABLE t("},
				Down: []string{"DROP TABLE t;"},
			},
		},
		{
			name: "regular_comments_are_not_markers",
			text: "-- migrate this down the road\nSELECT 1;\n",
			exp: Sections{
				Up: []string{"SELECT 1;"},
			},
		},
		{
			name:   "unknown_section",
			text:   "-- migrate: sideways\nSELECT 1;\n",
			expErr: "unknown migration section 'sideways'",
		},
		{
			// A marker with the name missing is a typo'd marker, not a
			// comment; treating it as one would execute the statements after
			// it in whatever section happens to be current.
			name:   "marker_with_empty_name",
			text:   "-- migrate: up\nCREATE TABLE a(x int);\n-- migrate:\nDROP TABLE b;\n",
			expErr: "unknown migration section ''",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			secs, err := ParseDocument(tt.text, nil)
			if tt.expErr != "" {
				assert.EqualError(t, err, tt.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exp, secs)
		})
	}
}

func TestParseDocumentEmptyUpMarkerNotPromoted(t *testing.T) {
	t.Parallel()

	// An explicit but empty up section still counts as empty, so a non-empty
	// prolog is promoted into it.
	secs, err := ParseDocument("-- migrate: prolog\nSELECT 1;\n-- migrate: up\n", nil)
	require.NoError(t, err)
	assert.Equal(t, Sections{Up: []string{"SELECT 1;"}}, secs)
}
