package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsalo/fieldscan/internal/detector"
)

func TestAnalyzeFileWritesDetections(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	mock := &detector.Mock{
		Results: map[string][]detector.Detection{
			"dawn.wav": {
				{Start: 0, End: 3, Label: "Common Loon", Confidence: 0.91},
				{Start: 12, End: 15, Label: "Veery", Confidence: 0.424},
			},
		},
	}

	location, err := AnalyzeFile(t.Context(), mock, "/data/site-01/dawn.wav", outDir, 0.1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "site-01", "dawn.csv"), location)

	raw, err := os.ReadFile(location)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "file,start_s,end_s,label,confidence", lines[0])
	assert.Equal(t, "dawn.wav,0,3,Common Loon,0.910", lines[1])
	assert.Equal(t, "dawn.wav,12,15,Veery,0.424", lines[2])
}

func TestAnalyzeFileHeaderOnlyWhenQuiet(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	mock := &detector.Mock{}

	location, err := AnalyzeFile(t.Context(), mock, "/data/site-02/quiet.wav", outDir, 0.1)
	require.NoError(t, err)

	raw, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "file,start_s,end_s,label,confidence\n", string(raw))
}

func TestAnalyzeFileDetectorFailure(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	cause := errors.New("unsupported codec")
	mock := &detector.Mock{Errs: map[string]error{"corrupt.wav": cause}}

	_, err := AnalyzeFile(t.Context(), mock, "/data/site-01/corrupt.wav", outDir, 0.1)
	require.Error(t, err)

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "/data/site-01/corrupt.wav", fe.Path)
	assert.ErrorIs(t, err, cause)

	_, statErr := os.Stat(filepath.Join(outDir, "site-01", "corrupt.csv"))
	assert.True(t, os.IsNotExist(statErr), "no output should be written for a failed file")
}

func TestResultLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		outDir string
		file   string
		want   string
	}{
		{"results", "/data/site-01/dawn.wav", filepath.Join("results", "site-01", "dawn.csv")},
		{"results", "/data/site-01/dawn.take2.flac", filepath.Join("results", "site-01", "dawn.take2.csv")},
		{"/out", "/deep/nested/tree/x.mp3", filepath.Join("/out", "tree", "x.csv")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, resultLocation(tc.outDir, tc.file), tc.file)
	}
}
