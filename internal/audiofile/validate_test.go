package audiofile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, sampleRate, bitDepth, channels, frames int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: bitDepth,
	}
	for i := range buf.Data {
		buf.Data[i] = i % 128
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestValidateWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ok.wav")
	writeTestWAV(t, path, 48000, 16, 1, 480)

	require.NoError(t, Validate(path))
}

func TestProbeWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWAV(t, path, 44100, 16, 2, 300)

	info, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 2, info.NumChannels)
	assert.Equal(t, 16, info.BitDepth)
	assert.Equal(t, 300, info.TotalSamples)
}

func TestValidateEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	err := Validate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty audio file")
}

func TestValidateGarbageWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "noise.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not RIFF data at all"), 0o644))

	err := Validate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid WAV file")
}

func TestValidateGarbageFLAC(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "noise.flac")
	require.NoError(t, os.WriteFile(path, []byte("not a flac stream"), 0o644))

	require.Error(t, Validate(path))
}

func TestValidateUnsupportedBitDepth(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "low.wav")
	writeTestWAV(t, path, 22050, 8, 1, 100)

	err := Validate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported bit depth")
}

func TestValidateStatOnlyExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"clip.mp3", "clip.ogg", "clip.m4a"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("opaque payload"), 0o644))
		assert.NoError(t, Validate(path), name)
	}
}

func TestValidateMissingFile(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(filepath.Join(t.TempDir(), "gone.wav")))
}

func TestValidateDirectory(t *testing.T) {
	t.Parallel()

	err := Validate(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestProbeUnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	_, err := Probe(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decoder")
}
