package audiofile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canonicalTempDir resolves the test dir through symlinks so expected paths
// compare equal to Resolve output on platforms where TMPDIR is a link.
func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestHasSupportedExtension(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want bool
	}{
		{"rec.wav", true},
		{"rec.WAV", true},
		{"rec.FlAc", true},
		{"rec.mp3", true},
		{"rec.ogg", true},
		{"rec.m4a", true},
		{"rec.txt", false},
		{"rec.wav.bak", false},
		{"wav", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HasSupportedExtension(tc.path), "path %q", tc.path)
	}
}

func TestSupportedExtensionsSorted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{".flac", ".m4a", ".mp3", ".ogg", ".wav"}, SupportedExtensions())
}

func TestResolveFiltersUnsupportedExtensions(t *testing.T) {
	t.Parallel()

	base := canonicalTempDir(t)
	want := []string{
		touch(t, filepath.Join(base, "a.wav")),
		touch(t, filepath.Join(base, "b.FLAC")),
		touch(t, filepath.Join(base, "c.mp3")),
	}
	touch(t, filepath.Join(base, "notes.txt"))
	touch(t, filepath.Join(base, "c.mp3.part"))

	got, err := Resolve(base, "")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveMissingBase(t *testing.T) {
	t.Parallel()

	got, err := Resolve(filepath.Join(t.TempDir(), "nope"), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveFileBase(t *testing.T) {
	t.Parallel()

	base := canonicalTempDir(t)
	file := touch(t, filepath.Join(base, "solo.wav"))

	got, err := Resolve(file, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveFolderPattern(t *testing.T) {
	t.Parallel()

	base := canonicalTempDir(t)
	inSite := touch(t, filepath.Join(base, "site-01", "dawn.wav"))
	inNested := touch(t, filepath.Join(base, "archive", "site-02", "dusk.flac"))
	touch(t, filepath.Join(base, "calibration", "tone.wav"))
	touch(t, filepath.Join(base, "stray.wav"))

	got, err := Resolve(base, "site-*")
	require.NoError(t, err)
	assert.Equal(t, []string{inSite, inNested}, got)
}

func TestResolvePatternWithoutMatchScansBase(t *testing.T) {
	t.Parallel()

	base := canonicalTempDir(t)
	want := []string{
		touch(t, filepath.Join(base, "deep", "one.wav")),
		touch(t, filepath.Join(base, "two.ogg")),
	}

	got, err := Resolve(base, "no-such-dir-*")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveDeterministicOrder(t *testing.T) {
	t.Parallel()

	base := canonicalTempDir(t)
	// Created out of order on purpose; traversal is lexical.
	touch(t, filepath.Join(base, "z.wav"))
	touch(t, filepath.Join(base, "m", "inner.wav"))
	touch(t, filepath.Join(base, "a.wav"))

	want := []string{
		filepath.Join(base, "a.wav"),
		filepath.Join(base, "m", "inner.wav"),
		filepath.Join(base, "z.wav"),
	}

	for range 3 {
		got, err := Resolve(base, "")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestResolveDeduplicatesOverlappingRoots(t *testing.T) {
	t.Parallel()

	base := canonicalTempDir(t)
	file := touch(t, filepath.Join(base, "outer", "inner", "take.wav"))

	// Pattern "*" matches both outer and outer/inner, so the file is
	// reachable from two roots.
	got, err := Resolve(base, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{file}, got)
}

func TestResolveDeduplicatesSymlinkedFiles(t *testing.T) {
	t.Parallel()

	base := canonicalTempDir(t)
	real := touch(t, filepath.Join(base, "a", "take.wav"))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "b"), 0o755))
	if err := os.Symlink(real, filepath.Join(base, "b", "alias.wav")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := Resolve(base, "")
	require.NoError(t, err)
	assert.Equal(t, []string{real}, got)
}
