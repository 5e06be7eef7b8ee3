package audiofile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/tsalo/fieldscan/internal/errors"
)

// Info describes the audio stream of a probed file.
type Info struct {
	SampleRate   int
	NumChannels  int
	BitDepth     int
	TotalSamples int
}

// Validate performs the pre-flight check used when input.validate is on. WAV
// and FLAC files get a real header probe; for WAV the first block of samples
// is decoded too, which catches truncated recordings the header alone would
// pass. The remaining supported types are only checked to be non-empty
// regular files, since no native decoder is wired for them.
func Validate(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	if !stat.Mode().IsRegular() {
		return errors.Newf("not a regular file: %s", filepath.Base(path)).
			Category(errors.CategoryValidation).
			FileContext(path, stat.Size()).
			Build()
	}
	if stat.Size() == 0 {
		return errors.Newf("empty audio file: %s", filepath.Base(path)).
			Category(errors.CategoryAudio).
			FileContext(path, 0).
			Build()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return validateWAV(path, stat.Size())
	case ".flac":
		_, err := Probe(path)
		return err
	default:
		return nil
	}
}

// Probe reads the audio header of a WAV or FLAC file and returns its stream
// parameters. Other extensions are not probeable.
func Probe(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return probeWAV(file, path)
	case ".flac":
		return probeFLAC(file, path)
	default:
		return nil, errors.Newf("no decoder for %s files", filepath.Ext(path)).
			Category(errors.CategoryAudio).
			FileContext(path, 0).
			Build()
	}
}

func probeWAV(file *os.File, path string) (*Info, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("invalid WAV file: %s", filepath.Base(path)).
			Category(errors.CategoryAudio).
			FileContext(path, fileSize(file)).
			Build()
	}
	if err := validateStreamParams(int(decoder.BitDepth), int(decoder.NumChans)); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryAudio).
			FileContext(path, fileSize(file)).
			Build()
	}

	info := &Info{
		SampleRate:  int(decoder.SampleRate),
		NumChannels: int(decoder.NumChans),
		BitDepth:    int(decoder.BitDepth),
	}

	// The decoder does not expose a sample count, so estimate it from the
	// data size past the 44-byte canonical header.
	bytesPerFrame := (info.BitDepth / 8) * info.NumChannels
	if stat, err := file.Stat(); err == nil && bytesPerFrame > 0 && stat.Size() > 44 {
		info.TotalSamples = int((stat.Size() - 44) / int64(bytesPerFrame))
	}
	return info, nil
}

func probeFLAC(file *os.File, path string) (*Info, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, errors.Newf("invalid FLAC file %s: %w", filepath.Base(path), err).
			Category(errors.CategoryAudio).
			FileContext(path, fileSize(file)).
			Build()
	}
	if err := validateStreamParams(decoder.BitsPerSample, decoder.NChannels); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryAudio).
			FileContext(path, fileSize(file)).
			Build()
	}
	return &Info{
		SampleRate:   decoder.SampleRate,
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
		TotalSamples: int(decoder.TotalSamples),
	}, nil
}

// validateWAV probes the header and decodes one small PCM block to prove the
// data section is readable.
func validateWAV(path string, size int64) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(path, size).
			Build()
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return errors.Newf("invalid WAV file: %s", filepath.Base(path)).
			Category(errors.CategoryAudio).
			FileContext(path, size).
			Build()
	}
	if err := validateStreamParams(int(decoder.BitDepth), int(decoder.NumChans)); err != nil {
		return errors.New(err).
			Category(errors.CategoryAudio).
			FileContext(path, size).
			Build()
	}

	buf := &audio.IntBuffer{
		Data: make([]int, 512*int(decoder.NumChans)),
		Format: &audio.Format{
			SampleRate:  int(decoder.SampleRate),
			NumChannels: int(decoder.NumChans),
		},
	}
	if _, err := decoder.PCMBuffer(buf); err != nil {
		return errors.Newf("unreadable WAV data in %s: %w", filepath.Base(path), err).
			Category(errors.CategoryAudio).
			FileContext(path, size).
			Build()
	}
	return nil
}

func validateStreamParams(bitDepth, channels int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
	if channels < 1 || channels > 2 {
		return fmt.Errorf("unsupported channel count: %d", channels)
	}
	return nil
}

func fileSize(file *os.File) int64 {
	if stat, err := file.Stat(); err == nil {
		return stat.Size()
	}
	return 0
}
