package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// maxLineBytes bounds a single corpus line.
const maxLineBytes = 1 << 20

var (
	ErrMissingFrequency  = errors.New("missing frequency token")
	ErrNegativeFrequency = errors.New("frequency must not be negative")
)

// FormatError reports a corpus line that does not hold a valid word/frequency pair.
type FormatError struct {
	Line int
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("corpus line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// LoadOptions controls how malformed input is treated.
type LoadOptions struct {
	// SkipMalformed logs and drops bad lines instead of failing the whole load.
	SkipMalformed bool
}

// Load reads "word frequency" lines from r. Tokens are separated by any run of
// whitespace, extra tokens after the frequency are ignored and blank lines are skipped.
// Unless opts.SkipMalformed is set, the first bad line aborts the load with a *FormatError.
func Load(r io.Reader, opts LoadOptions) (*Store, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var entries []WordEntry
	skipped := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		entry, ok, err := parseLine(line)
		if err != nil {
			ferr := &FormatError{Line: lineNo, Text: line, Err: err}
			if !opts.SkipMalformed {
				return nil, ferr
			}
			log.Warnf("Skipping malformed corpus line: %v", ferr)
			skipped++
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	store := New(entries)
	store.skipped = skipped
	log.Debugf("Corpus loaded: %d lines, %d entries, %d skipped", lineNo, store.Len(), skipped)
	return store, nil
}

// parseLine returns ok=false for blank lines.
func parseLine(line string) (WordEntry, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return WordEntry{}, false, nil
	}
	if len(fields) < 2 {
		return WordEntry{}, false, ErrMissingFrequency
	}
	freq, err := strconv.Atoi(fields[1])
	if err != nil {
		return WordEntry{}, false, fmt.Errorf("invalid frequency %q: %w", fields[1], err)
	}
	if freq < 0 {
		return WordEntry{}, false, ErrNegativeFrequency
	}
	return WordEntry{Word: fields[0], Frequency: freq}, true, nil
}

// LoadFile loads a corpus from path, picking the decoder from the file extension.
// A shared lock on the sibling lock file is held while reading so that a concurrent
// writer holding the exclusive lock is never observed half way through.
func LoadFile(path string, opts LoadOptions) (*Store, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}

	unlock := readLock(path)
	defer unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer file.Close()

	switch format {
	case FormatSnapshot:
		log.Debugf("Reading corpus snapshot %s", path)
		return ReadSnapshot(bufio.NewReader(file))
	default:
		log.Debugf("Reading text corpus %s", path)
		return Load(file, opts)
	}
}

// WriteText writes the store back out in the line oriented text format.
func WriteText(w io.Writer, s *Store) error {
	bw := bufio.NewWriter(w)
	for _, e := range s.entries {
		if _, err := fmt.Fprintf(bw, "%s %d\n", e.Word, e.Frequency); err != nil {
			return err
		}
	}
	return bw.Flush()
}
