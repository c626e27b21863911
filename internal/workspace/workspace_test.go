package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := New(t.TempDir(), false)
	require.NoError(t, err)
	return w
}

func TestWorkspaceWriteReadRoundTrip(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.Write("a/b.txt", []byte("hello")))

	data, err := w.Read("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.True(t, w.Exists("a/b.txt"))
}

func TestWorkspaceRejectsPathEscapingRoot(t *testing.T) {
	w := newTestWorkspace(t)
	err := w.Write("../escape.txt", []byte("x"))
	assert.Error(t, err)
}

func TestWorkspaceRejectsAbsolutePathByDefault(t *testing.T) {
	w := newTestWorkspace(t)
	err := w.Write(filepath.Join(t.TempDir(), "x.txt"), []byte("x"))
	assert.Error(t, err)
}

func TestWorkspaceFindFilesMatchesGlob(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.Write("out/a.log", []byte("1")))
	require.NoError(t, w.Write("out/b.log", []byte("2")))
	require.NoError(t, w.Write("out/c.txt", []byte("3")))

	matches, err := w.FindFiles("out/*.log")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestWorkspaceStashAndUnstashRoundTrip(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.Write("build/app.bin", []byte("binary")))
	require.NoError(t, w.Stash("artifacts", "build"))
	require.NoError(t, w.Delete("build"))

	require.NoError(t, w.Unstash("artifacts"))
	data, err := w.Read("build/app.bin")
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestWorkspaceUnstashMissingNameFails(t *testing.T) {
	w := newTestWorkspace(t)
	err := w.Unstash("does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StashNotFound")
}

func TestWorkspaceCleanRemovesAllEntries(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.Write("a.txt", []byte("1")))
	require.NoError(t, w.Write("dir/b.txt", []byte("2")))

	require.NoError(t, w.Clean())
	entries, err := w.List(".")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
