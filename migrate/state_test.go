package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStoreUninitialized(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	store := NewSQLStore("_strata")
	ctx := d.NewContext()

	_, err := store.Applied(ctx, d)
	var uerr UninitializedStateError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "_strata", uerr.Table)

	err = store.RecordReverted(ctx, d, "001")
	require.ErrorAs(t, err, &uerr)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	store := NewSQLStore("_strata")
	ctx := d.NewContext()

	require.NoError(t, store.EnsureInitialized(ctx, d))
	// Initialization is idempotent.
	require.NoError(t, store.EnsureInitialized(ctx, d))

	records, err := store.Applied(ctx, d)
	require.NoError(t, err)
	assert.Empty(t, records)

	recs := []AppliedRecord{
		{Sequence: "001", Name: "init", AppliedAt: testTime, Hash: "aaaa"},
		{Sequence: "003", Name: "index", AppliedAt: testTime.Add(time.Minute), Hash: "cccc"},
		{Sequence: "002", Name: "seed", AppliedAt: testTime.Add(2 * time.Minute), Hash: "bbbb"},
	}
	for _, rec := range recs {
		require.NoError(t, store.RecordApplied(ctx, d, rec))
	}

	// Ordered by application time, not sequence.
	records, err = store.Applied(ctx, d)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "001", records[0].Sequence)
	assert.Equal(t, "003", records[1].Sequence)
	assert.Equal(t, "002", records[2].Sequence)
	assert.Equal(t, "seed", records[2].Name)
	assert.Equal(t, "bbbb", records[2].Hash)
	assert.True(t, records[2].AppliedAt.Equal(testTime.Add(2*time.Minute)))

	rec, err := store.Get(ctx, d, "003")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "index", rec.Name)

	rec, err = store.Get(ctx, d, "999")
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Re-recording an applied sequence updates it instead of failing.
	require.NoError(t, store.RecordApplied(ctx, d, AppliedRecord{
		Sequence: "001", Name: "init", AppliedAt: testTime.Add(time.Hour), Hash: "dddd",
	}))
	rec, err = store.Get(ctx, d, "001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "dddd", rec.Hash)

	require.NoError(t, store.RecordReverted(ctx, d, "002"))
	records, err = store.Applied(ctx, d)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Reverting an unknown sequence is a no-op.
	require.NoError(t, store.RecordReverted(ctx, d, "999"))
}
