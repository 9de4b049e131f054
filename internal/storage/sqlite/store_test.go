package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daethyra/ExecEye/internal/search"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "results.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func sampleRecords() []search.Record {
	return []search.Record{
		{Title: "Jane Doe - CEO", Link: "https://acme.example/jane", Snippet: "Jane leads Acme."},
		{Title: "Board of Directors", Link: "https://acme.example/board", Snippet: ""},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage path is required")
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	conn, err := store.OpenConn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	for range 3 {
		require.NoError(t, store.EnsureSchema(ctx, conn))
	}

	n, err := store.Count(ctx, conn, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEnsureSchemaConcurrentSessions(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := store.OpenConn(ctx)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			errs <- store.EnsureSchema(ctx, conn)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestAppendAndHistory(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	store.now = func() time.Time { return time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()
	conn, err := store.OpenConn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, store.EnsureSchema(ctx, conn))

	written, err := store.Append(ctx, conn, "acme|leadership", sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	_, err = store.Append(ctx, conn, "globex|leadership", []search.Record{{Title: "Hank Scorpio"}})
	require.NoError(t, err)

	rows, err := store.History(ctx, conn, HistoryQuery{Key: "acme|leadership"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Board of Directors", rows[0].Title, "history is newest first")
	assert.Equal(t, "acme|leadership", rows[0].Query)
	assert.Equal(t, "", rows[0].Snippet)
	assert.Equal(t, sampleRecords()[0], rows[1].Record())
	assert.Equal(t, time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC), rows[1].CreatedAt)
	assert.Greater(t, rows[0].ID, rows[1].ID)

	all, err := store.History(ctx, conn, HistoryQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "globex|leadership", all[0].Query)

	total, err := store.Count(ctx, conn, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestAppendEmptyRecordsWritesNothing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	conn, err := store.OpenConn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, store.EnsureSchema(ctx, conn))

	written, err := store.Append(ctx, conn, "acme|leadership", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	n, err := store.Count(ctx, conn, "acme|leadership")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAppendRequiresKey(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	conn, err := store.OpenConn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = store.Append(ctx, conn, " ", sampleRecords())
	require.ErrorIs(t, err, ErrPersistence)
}

// A failing row must roll back every row of the same append.
func TestAppendIsAtomic(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	conn, err := store.OpenConn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, store.EnsureSchema(ctx, conn))

	_, err = conn.ExecContext(ctx, `
CREATE TRIGGER reject_poison BEFORE INSERT ON results
WHEN NEW.title = 'poison'
BEGIN
    SELECT RAISE(ABORT, 'poisoned record');
END;`)
	require.NoError(t, err)

	records := append(sampleRecords(), search.Record{Title: "poison"})
	written, err := store.Append(ctx, conn, "acme|leadership", records)
	require.Error(t, err)
	assert.Equal(t, 0, written)
	assert.ErrorIs(t, err, ErrPersistence)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, OpAppend, perr.Op)
	assert.Equal(t, "acme|leadership", perr.Key)
	assert.Contains(t, err.Error(), "poisoned record")

	n, err := store.Count(ctx, conn, "acme|leadership")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "no row of a failed append may survive")

	// The session is still usable afterwards.
	written, err = store.Append(ctx, conn, "acme|leadership", sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, written)
}

func TestAppendCancelledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	conn, err := store.OpenConn(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Append(ctx, conn, "acme|leadership", sampleRecords())
	require.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAppendWithoutSchemaFails(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	conn, err := store.OpenConn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = store.Append(ctx, conn, "acme|leadership", sampleRecords())
	require.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "no such table")
}

func TestIsAlreadyExistsError(t *testing.T) {
	assert.False(t, IsAlreadyExistsError(nil))
	assert.False(t, IsAlreadyExistsError(errors.New("disk I/O error")))
	assert.True(t, IsAlreadyExistsError(errors.New("SQL logic error: table results already exists (1)")))
}
