package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tsalo/fieldscan/internal/audiofile"
	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/errors"
)

// FileAnalysis analyzes a single audio file through the same per-file flow
// a batch file gets and prints where the results landed. It is the entry
// point behind the file command.
func FileAnalysis(ctx context.Context, settings *conf.Settings, path string, verbose bool) error {
	if !audiofile.HasSupportedExtension(path) {
		return errors.Newf("unsupported audio format: %s (supported: %s)",
			filepath.Base(path), strings.Join(audiofile.SupportedExtensions(), ", ")).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}

	det, err := detector.NewExecDetector(&settings.Analyzer)
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer closeDataStore(store)

	publisher, err := connectPublisher(ctx, settings)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Disconnect()
	}

	if verbose {
		printStreamInfo(path)
	}

	runner := NewRunner(settings, det, store, nil, publisher, nil)
	location, err := runner.ProcessFile(ctx, path)
	runner.FinishSession()
	if err != nil {
		return err
	}

	fmt.Printf("Results written to %s\n", location)
	return nil
}

// printStreamInfo probes the audio header and prints the stream parameters.
// Only WAV and FLAC are probeable; for the rest the probe error is shown
// and analysis proceeds regardless.
func printStreamInfo(path string) {
	info, err := audiofile.Probe(path)
	if err != nil {
		fmt.Printf("Stream info unavailable: %v\n", err)
		return
	}
	fmt.Printf("%s: %d Hz, %d channel(s), %d-bit, %d samples\n",
		filepath.Base(path), info.SampleRate, info.NumChannels, info.BitDepth, info.TotalSamples)
}
