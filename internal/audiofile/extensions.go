// Package audiofile discovers and validates the audio inputs of a batch run.
package audiofile

import (
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions is the fixed allow-list of audio types the analyzer
// understands. Matching is case-insensitive on the file extension only; the
// file contents are not inspected during discovery.
var supportedExtensions = map[string]bool{
	".wav":  true,
	".flac": true,
	".mp3":  true,
	".ogg":  true,
	".m4a":  true,
}

// SupportedExtensions returns the allow-list in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// HasSupportedExtension reports whether path carries an extension from the
// allow-list, regardless of case.
func HasSupportedExtension(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}
