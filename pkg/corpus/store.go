// Package corpus holds the immutable word/frequency set that completions are drawn from.
//
// A Store is built once, either from line oriented text ("word frequency" per line) or
// from a msgpack snapshot, and is never mutated afterwards. Every read method is safe
// for concurrent use without locking.
package corpus

import (
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"
)

// WordEntry is a single corpus word and its frequency.
type WordEntry struct {
	Word      string `msgpack:"w"`
	Frequency int    `msgpack:"f"`
}

// Store is a deduplicated, read-only set of WordEntry values indexed by a Patricia trie.
type Store struct {
	trie         *patricia.Trie
	entries      []WordEntry
	distinct     int
	maxFrequency int
	skipped      int
}

// New builds a Store from entries. Identical (word, frequency) pairs collapse into one
// entry; the same word with different frequencies is kept once per frequency.
// Entries with an empty word are dropped.
func New(entries []WordEntry) *Store {
	seen := make(map[WordEntry]struct{}, len(entries))
	unique := make([]WordEntry, 0, len(entries))
	for _, e := range entries {
		if e.Word == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		unique = append(unique, e)
	}

	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Word != unique[j].Word {
			return unique[i].Word < unique[j].Word
		}
		return unique[i].Frequency < unique[j].Frequency
	})

	s := &Store{
		trie:    patricia.NewTrie(),
		entries: unique,
	}
	for _, e := range unique {
		key := patricia.Prefix(e.Word)
		if item := s.trie.Get(key); item != nil {
			s.trie.Set(key, append(item.([]WordEntry), e))
		} else {
			s.trie.Insert(key, []WordEntry{e})
			s.distinct++
		}
		if e.Frequency > s.maxFrequency {
			s.maxFrequency = e.Frequency
		}
	}
	return s
}

// Len returns the number of entries in the store.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns a copy of all entries ordered by word, then frequency.
func (s *Store) Entries() []WordEntry {
	out := make([]WordEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Visit calls fn for every entry whose word starts with prefix. Matching is a plain
// byte prefix match, so case is significant. A non-nil error from fn stops the walk
// and is returned.
func (s *Store) Visit(prefix string, fn func(WordEntry) error) error {
	return s.trie.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		for _, e := range item.([]WordEntry) {
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats returns basic counters about the loaded corpus.
func (s *Store) Stats() map[string]int {
	return map[string]int{
		"totalWords":    len(s.entries),
		"distinctWords": s.distinct,
		"maxFrequency":  s.maxFrequency,
		"skippedLines":  s.skipped,
	}
}
