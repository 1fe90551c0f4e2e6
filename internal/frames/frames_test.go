package frames

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	assert.Equal(t, "frame000.png", Name(0))
	assert.Equal(t, "frame042.png", Name(42))
	assert.Equal(t, "frame1234.png", Name(1234))
}

func TestPattern(t *testing.T) {
	assert.Equal(t, filepath.Join("frames", "frame%03d.png"), Pattern("frames"))
}

func TestMatch(t *testing.T) {
	for name, want := range map[string]bool{
		"frame000.png":   true,
		"frame7.png":     true,
		"frame1234.png":  true,
		"frame.png":      false,
		"frame00a.png":   false,
		"frame000.jpg":   false,
		"palette.png":    false,
		"myframe000.png": false,
	} {
		assert.Equal(t, want, Match(name), name)
	}
}

func TestListSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame002.png", "frame000.png", "notes.txt", "frame001.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame003.png"), 0o755))

	paths, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "frame000.png"),
		filepath.Join(dir, "frame001.png"),
		filepath.Join(dir, "frame002.png"),
	}, paths)
}

func TestPrepareCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	n, err := Prepare(dir)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.DirExists(t, dir)
}

func TestPrepareClearsOnlyFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame000.png", "frame001.png", "frame099.png", "keep.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	n, err := Prepare(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	paths, err := List(dir)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.FileExists(t, filepath.Join(dir, "keep.png"))
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestListOrdersByFrameNumber(t *testing.T) {
	dir := t.TempDir()
	for _, i := range []int{1001, 99, 1000, 101, 999, 100} {
		touch(t, Path(dir, i))
	}

	paths, err := List(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"frame099.png", "frame100.png", "frame101.png",
		"frame999.png", "frame1000.png", "frame1001.png",
	}, names)
}

func TestIndex(t *testing.T) {
	i, ok := Index("frame1000.png")
	assert.True(t, ok)
	assert.Equal(t, 1000, i)

	_, ok = Index("frame.png")
	assert.False(t, ok)
}

func TestSequenceStopsAtGap(t *testing.T) {
	dir := t.TempDir()
	for _, i := range []int{0, 1, 2, 4} {
		touch(t, Path(dir, i))
	}
	touch(t, filepath.Join(dir, "frame5.png"))

	paths, err := Sequence(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{Path(dir, 0), Path(dir, 1), Path(dir, 2)}, paths)
}

func TestSequenceCrossesThousand(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 1002; i++ {
		touch(t, Path(dir, i))
	}

	paths, err := Sequence(dir)
	require.NoError(t, err)
	require.Len(t, paths, 1002)
	assert.Equal(t, Path(dir, 999), paths[999])
	assert.Equal(t, filepath.Join(dir, "frame1000.png"), paths[1000])
}

func TestSequenceUnpaddedNameIgnored(t *testing.T) {
	dir := t.TempDir()
	touch(t, Path(dir, 0))
	touch(t, filepath.Join(dir, "frame5.png"))

	paths, err := Sequence(dir)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}
