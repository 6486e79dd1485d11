package transfer

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStagedCommit(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.txt")

	s, err := stage(final)
	require.NoError(t, err)
	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = os.Stat(final)
	require.True(t, os.IsNotExist(err), "destination must not exist before commit")

	require.NoError(t, s.Commit())
	s.Discard()

	got, err := os.ReadFile(final)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
	requireNoPartFiles(t, dir)
}

func TestStagedDiscard(t *testing.T) {
	dir := t.TempDir()
	s, err := stage(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	_, err = s.Write([]byte("partial"))
	require.NoError(t, err)
	s.Discard()
	s.Discard()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCheckSpace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, checkSpace(dir, 0))

	if _, ok := availableSpace(dir); !ok {
		t.Skipf("free space not reported on %s", runtime.GOOS)
	}
	err := checkSpace(dir, math.MaxUint64)
	require.ErrorIs(t, err, ErrInsufficientSpace)
	require.Equal(t, KindLocalIO, KindOf(err))
}

func TestValidateRelPath(t *testing.T) {
	for _, ok := range []string{"a", "a/b/c.txt", "./a", "a/./b"} {
		require.NoError(t, validateRelPath(ok), ok)
	}
	for _, bad := range []string{"", "/etc/passwd", "../x", "a/../../x", "a/..", ".", "a\\b", "a\x00b"} {
		require.Error(t, validateRelPath(bad), bad)
	}
}
