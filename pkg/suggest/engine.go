package suggest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/bastiangx/autocomplete/pkg/corpus"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultLimit is the maximum number of suggestions returned for a prefix.
const DefaultLimit = 10

var ErrSuggestionsNotFound = errors.New("suggestions not found")

// Options configures an Engine.
type Options struct {
	// Limit caps the result size. Values outside 1..DefaultLimit mean DefaultLimit.
	Limit int

	// FoldCase lowercases prefixes before lookup and matches them against lowercased
	// corpus words. Returned words keep their stored case.
	FoldCase bool

	// CacheSize bounds the number of cached prefixes, 0 means unbounded.
	CacheSize int
}

type index interface {
	Visit(prefix string, fn func(corpus.WordEntry) error) error
}

// Engine ranks corpus entries for a prefix and memoizes each result for the lifetime
// of the process. The corpus never changes, so cached results never go stale.
type Engine struct {
	index index
	store *corpus.Store
	cache *Cache
	opts  Options
	scans atomic.Uint64
}

var _ Suggester = (*Engine)(nil)

func NewEngine(store *corpus.Store, opts Options) *Engine {
	if opts.Limit < 1 || opts.Limit > DefaultLimit {
		opts.Limit = DefaultLimit
	}

	e := &Engine{
		index: store,
		store: store,
		cache: NewCache(opts.CacheSize),
		opts:  opts,
	}
	if opts.FoldCase {
		e.index = newFoldedIndex(store)
	}

	log.Debug("Suggestion engine ready", "words", store.Len(), "limit", opts.Limit, "foldCase", opts.FoldCase, "cacheSize", opts.CacheSize)
	return e
}

// Suggest returns the ranked completions for prefix, computing them on the first
// request and serving the cached copy afterwards.
func (e *Engine) Suggest(prefix string) ([]corpus.WordEntry, error) {
	key := e.normalize(prefix)

	result, ok := e.cache.Get(key)
	if !ok {
		ranked, err := e.rank(key)
		if err != nil {
			return nil, err
		}
		result = e.cache.Add(key, ranked)
	}

	if len(result) == 0 {
		return nil, ErrSuggestionsNotFound
	}
	out := make([]corpus.WordEntry, len(result))
	copy(out, result)
	return out, nil
}

// Scans reports how many times the corpus has been walked. Cache hits do not scan.
func (e *Engine) Scans() uint64 {
	return e.scans.Load()
}

func (e *Engine) Stats() map[string]int {
	stats := e.store.Stats()
	for k, v := range e.cache.Stats() {
		stats[k] = v
	}
	stats["scans"] = int(e.scans.Load())
	stats["limit"] = e.opts.Limit
	return stats
}

func (e *Engine) normalize(prefix string) string {
	if e.opts.FoldCase {
		return strings.ToLower(prefix)
	}
	return prefix
}

// rank walks the index for prefix. A failed walk is returned and never cached.
func (e *Engine) rank(prefix string) ([]corpus.WordEntry, error) {
	e.scans.Add(1)

	var matches []corpus.WordEntry
	err := e.index.Visit(prefix, func(entry corpus.WordEntry) error {
		matches = append(matches, entry)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting corpus for prefix '%s': %v", prefix, err)
		return nil, fmt.Errorf("visit corpus for prefix %q: %w", prefix, err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return Less(matches[i], matches[j])
	})

	if len(matches) > e.opts.Limit {
		matches = matches[:e.opts.Limit:e.opts.Limit]
	}
	return matches, nil
}

// Less orders entries by descending frequency, breaking ties by ascending word.
func Less(a, b corpus.WordEntry) bool {
	if a.Frequency != b.Frequency {
		return a.Frequency > b.Frequency
	}
	return a.Word < b.Word
}

// foldedIndex is a trie over lowercased words. Words that differ only in case share a
// key and are stored together.
type foldedIndex struct {
	trie *patricia.Trie
}

func newFoldedIndex(store *corpus.Store) *foldedIndex {
	idx := &foldedIndex{trie: patricia.NewTrie()}
	for _, entry := range store.Entries() {
		key := patricia.Prefix(strings.ToLower(entry.Word))
		if item := idx.trie.Get(key); item != nil {
			idx.trie.Set(key, append(item.([]corpus.WordEntry), entry))
		} else {
			idx.trie.Insert(key, []corpus.WordEntry{entry})
		}
	}
	return idx
}

func (idx *foldedIndex) Visit(prefix string, fn func(corpus.WordEntry) error) error {
	return idx.trie.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		for _, entry := range item.([]corpus.WordEntry) {
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}
