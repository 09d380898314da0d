package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHistoryStoreLoadReportsAbsentWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewFileHistoryStore(dir)

	history, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, history)
}

func TestFileHistoryStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileHistoryStore(dir)
	ctx := context.Background()

	history := sampleRotationHistory()
	require.NoError(t, store.Save(ctx, history))

	loaded, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, history.TotalRotations, loaded.TotalRotations)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, history.Entries[0].Version, loaded.Entries[0].Version)
}

func TestFileHistoryStoreLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, historyFile), []byte("{not json"), publicPerm))

	store := NewFileHistoryStore(dir)
	_, _, err := store.Load(context.Background())
	assert.Error(t, err)
}
