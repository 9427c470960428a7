package corpus

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const snapshotVersion = 1

var ErrSnapshotVersion = errors.New("unsupported snapshot version")

type snapshot struct {
	Version int         `msgpack:"v"`
	Entries []WordEntry `msgpack:"e"`
}

// WriteSnapshot encodes the store as a msgpack snapshot.
func WriteSnapshot(w io.Writer, s *Store) error {
	return msgpack.NewEncoder(w).Encode(snapshot{
		Version: snapshotVersion,
		Entries: s.entries,
	})
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot. Entries are validated the
// same way text lines are; the reported line is the entry's 1-based position.
func ReadSnapshot(r io.Reader) (*Store, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	for i, e := range snap.Entries {
		if e.Word == "" {
			return nil, &FormatError{Line: i + 1, Err: errors.New("empty word")}
		}
		if e.Frequency < 0 {
			return nil, &FormatError{Line: i + 1, Text: e.Word, Err: ErrNegativeFrequency}
		}
	}
	return New(snap.Entries), nil
}
