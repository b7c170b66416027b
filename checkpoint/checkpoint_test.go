package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)

	cp := New("session-1", 50)
	cp.CurrentPage = 2
	cp.CurrentItem = 7
	cp.CompletedPages = []int{0, 1}
	cp.LastIdentityKey = "https://example.com/projects/riverfront-residences"
	cp.Counts = Counts{Scraped: 37, New: 20, Updated: 5, Duplicates: 12}

	require.NoError(t, store.Save(cp))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, 2, loaded.CurrentPage)
	assert.Equal(t, 7, loaded.CurrentItem)
	assert.Equal(t, []int{0, 1}, loaded.CompletedPages)
	assert.Equal(t, cp.LastIdentityKey, loaded.LastIdentityKey)
	assert.Equal(t, cp.Counts, loaded.Counts)
	assert.False(t, loaded.LastSavedAt.IsZero())
}

func TestStoreLoadMissing(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)

	// Corrupt file is preserved aside for manual recovery.
	_, statErr := os.Stat(path + ".corrupt")
	assert.NoError(t, statErr)
}

func TestStoreSaveReplacesWholeFile(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)

	cp := New("session-1", 50)
	for i := 0; i < 5; i++ {
		cp.AdvanceItem(fmt.Sprintf("https://example.com/p/%d", i))
		require.NoError(t, store.Save(cp))
	}

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.CurrentItem)
	assert.Equal(t, 5, loaded.Counts.Scraped)
	assert.Equal(t, "https://example.com/p/4", loaded.LastIdentityKey)
}

func TestRecordErrorBounded(t *testing.T) {
	cp := New("session-1", 10)

	for i := 0; i < 37; i++ {
		cp.RecordError(1, i, "", fmt.Sprintf("boom %d", i))
	}

	assert.Len(t, cp.Errors, 10)
	assert.Equal(t, 37, cp.TotalErrors)
	assert.Equal(t, 27, cp.DroppedErrors)
	// Oldest entries dropped first; newest retained.
	assert.Equal(t, "boom 36", cp.Errors[len(cp.Errors)-1].Message)
	assert.Equal(t, "boom 27", cp.Errors[0].Message)
}

func TestPauseAccounting(t *testing.T) {
	cp := New("session-1", 50)
	start := cp.StartedAt

	pausedAt := start.Add(10 * time.Second)
	cp.MarkPaused(pausedAt)
	// Duplicate pause commands must not restart the window.
	cp.MarkPaused(pausedAt.Add(2 * time.Second))
	assert.Equal(t, pausedAt, cp.PausedAt)

	resumedAt := pausedAt.Add(30 * time.Second)
	cp.MarkResumed(resumedAt)

	assert.Equal(t, 30*time.Second, cp.TotalPaused)
	assert.True(t, cp.PausedAt.IsZero())

	// totalRuntime - cumulativePause == activeRuntime.
	now := start.Add(60 * time.Second)
	assert.Equal(t, 30*time.Second, cp.ActiveRuntime(now))
}

func TestMarkResumedWithoutPause(t *testing.T) {
	cp := New("session-1", 50)
	cp.MarkResumed(time.Now())
	assert.Zero(t, cp.TotalPaused)
}

func TestCompletePage(t *testing.T) {
	cp := New("session-1", 50)
	cp.CurrentItem = 12
	cp.CompletePage()

	assert.Equal(t, []int{0}, cp.CompletedPages)
	assert.Equal(t, 1, cp.CurrentPage)
	assert.Equal(t, 0, cp.CurrentItem)
}
