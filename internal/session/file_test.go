package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "session")))
}

func TestFileStore_Permissions(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "session")
	store := NewFileStore(dir)
	require.NoError(t, store.Save(context.Background(), Session{Token: "tok"}))

	info, err := os.Stat(filepath.Join(dir, tokenFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_CorruptUserIsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, tokenFile), []byte("tok\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, userFile), []byte("{not json"), 0o600))

	got, err := NewFileStore(dir).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok", got.Token)
	require.Nil(t, got.User)
}

func TestFileStore_UserWithoutTokenIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, userFile), []byte(`{"id":"1"}`), 0o600))

	got, err := NewFileStore(dir).Load(context.Background())
	require.NoError(t, err)
	require.True(t, got.Empty())
	require.Nil(t, got.User)
}
