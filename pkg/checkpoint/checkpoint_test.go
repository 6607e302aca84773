package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/continuum-labs/govern/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := testutil.TempDir(t, "checkpoint")
	store, err := Open(filepath.Join(dir, "checkpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, "issue-1-add-x", []byte(`{"draft_count":1}`), "")
	require.NoError(t, err)

	data, terminal, found, err := store.Load(ctx, "issue-1-add-x")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "", terminal)
	assert.JSONEq(t, `{"draft_count":1}`, string(data))
}

func TestLoadMissingThreadReturnsNotFound(t *testing.T) {
	store := openTestStore(t)
	_, _, found, err := store.Load(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveOverwritesPriorSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "t1", []byte(`{"n":1}`), ""))
	require.NoError(t, store.Save(ctx, "t1", []byte(`{"n":2}`), ""))

	data, _, found, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"n":2}`, string(data))
}

func TestListActiveExcludesTerminalWorkflows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "active-1", []byte(`{}`), ""))
	require.NoError(t, store.Save(ctx, "active-2", []byte(`{}`), ""))
	require.NoError(t, store.Save(ctx, "done-1", []byte(`{}`), "APPROVED_FILED"))

	ids, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"active-1", "active-2"}, ids)
}

func TestIsPauseRequestedDetectsWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("human gate: save and exit: %w", ErrPauseRequested)
	assert.True(t, IsPauseRequested(wrapped))
	assert.False(t, IsPauseRequested(errors.New("some other error")))
}

func TestResumingDoneWorkflowIsReadOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "done-thread", []byte(`{"x":1}`), "APPROVED_FILED"))

	data, terminal, found, err := store.Load(ctx, "done-thread")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "APPROVED_FILED", terminal)
	assert.JSONEq(t, `{"x":1}`, string(data))

	ids, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, "done-thread")
}

func TestDeletionWatcherNoticesRemovedThreadDir(t *testing.T) {
	root := testutil.TempDir(t, "active")
	threadDir := filepath.Join(root, "issue-1-add-x")
	require.NoError(t, os.MkdirAll(threadDir, 0o755))

	w, err := WatchActiveDir(root)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.RemoveAll(threadDir))

	done := make(chan string, 1)
	go func() {
		id, ok := w.Deleted()
		if ok {
			done <- id
		}
	}()

	select {
	case id := <-done:
		assert.Equal(t, "issue-1-add-x", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deletion event")
	}
}
