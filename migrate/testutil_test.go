package migrate

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.hackfix.me/strata/db"
)

var testTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestDB opens a unique in-memory SQLite database with a fixed time source.
func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	// A unique name per test, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	d, err := db.Open(context.Background(),
		fmt.Sprintf("file:strata-%x?mode=memory&cache=shared", rndName),
		func() time.Time { return testTime })
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}
