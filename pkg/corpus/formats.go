package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileFormat represents the on-disk corpus encodings.
type FileFormat int

const (
	FormatUnknown  FileFormat = iota
	FormatText                // "word frequency" lines
	FormatSnapshot            // msgpack snapshot
)

// FormatInfo contains metadata about a corpus file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Corpus",
		Extensions:  []string{".txt"},
		MinSize:     0,
	},
	FormatSnapshot: {
		Format:      FormatSnapshot,
		Description: "Msgpack Corpus Snapshot",
		Extensions:  []string{".msgpack", ".mpk"},
		MinSize:     1,
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// FormatForPath maps a file extension to a format. Anything that is not a known
// snapshot extension is treated as text.
func FormatForPath(filename string) FileFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, ve := range supportedFormats[FormatSnapshot].Extensions {
		if ext == ve {
			return FormatSnapshot
		}
	}
	return FormatText
}

// DetectFileFormat stats filename and returns its format, failing if the file is
// missing, a directory, or too small to hold the format.
func DetectFileFormat(filename string) (FileFormat, error) {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to stat corpus %s: %w", filename, err)
	}
	if fileInfo.IsDir() {
		return FormatUnknown, fmt.Errorf("corpus %s is a directory", filename)
	}

	format := FormatForPath(filename)
	info := supportedFormats[format]
	if fileInfo.Size() < info.MinSize {
		return FormatUnknown, fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), info.Description, info.MinSize)
	}
	return format, nil
}

// ParseFormat converts a user supplied name ("text", "msgpack") to a FileFormat.
func ParseFormat(name string) (FileFormat, error) {
	switch strings.ToLower(name) {
	case "text", "txt":
		return FormatText, nil
	case "msgpack", "mpk", "snapshot":
		return FormatSnapshot, nil
	}
	return FormatUnknown, fmt.Errorf("unknown corpus format: %s", name)
}
