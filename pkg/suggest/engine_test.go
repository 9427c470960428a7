package suggest

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/bastiangx/autocomplete/pkg/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenarioEngine(opts Options) *Engine {
	store := corpus.New([]corpus.WordEntry{
		{Word: "apple", Frequency: 50},
		{Word: "app", Frequency: 50},
		{Word: "apply", Frequency: 80},
		{Word: "banana", Frequency: 10},
	})
	return NewEngine(store, opts)
}

func words(entries []corpus.WordEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Word
	}
	return out
}

func randomStore(seed int64, n int) *corpus.Store {
	rng := rand.New(rand.NewSource(seed))
	letters := "abc"
	entries := make([]corpus.WordEntry, 0, n)
	for i := 0; i < n; i++ {
		length := 1 + rng.Intn(6)
		var b strings.Builder
		for j := 0; j < length; j++ {
			b.WriteByte(letters[rng.Intn(len(letters))])
		}
		entries = append(entries, corpus.WordEntry{Word: b.String(), Frequency: rng.Intn(20)})
	}
	return corpus.New(entries)
}

func TestSuggestScenario(t *testing.T) {
	engine := newScenarioEngine(Options{})

	tests := []struct {
		prefix string
		want   []string
	}{
		{"app", []string{"apply", "app", "apple"}},
		{"ap", []string{"apply", "app", "apple"}},
		{"a", []string{"apply", "app", "apple"}},
		{"banan", []string{"banana"}},
		{"apple", []string{"apple"}},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := engine.Suggest(tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, words(got))
		})
	}
}

func TestSuggestNotFound(t *testing.T) {
	engine := newScenarioEngine(Options{})

	for _, prefix := range []string{"xyz", "App", "applez"} {
		got, err := engine.Suggest(prefix)
		assert.ErrorIs(t, err, ErrSuggestionsNotFound, prefix)
		assert.Nil(t, got)
	}
}

func TestSuggestOrderingAndLimit(t *testing.T) {
	store := randomStore(42, 2000)
	engine := NewEngine(store, Options{})

	for _, prefix := range []string{"a", "b", "ab", "cab", "abc", "ccc", "bca"} {
		got, err := engine.Suggest(prefix)
		if err != nil {
			assert.ErrorIs(t, err, ErrSuggestionsNotFound)
			continue
		}

		assert.LessOrEqual(t, len(got), DefaultLimit)
		for i, e := range got {
			assert.True(t, strings.HasPrefix(e.Word, prefix), "%q does not start with %q", e.Word, prefix)
			if i > 0 {
				prev := got[i-1]
				ok := prev.Frequency > e.Frequency ||
					(prev.Frequency == e.Frequency && prev.Word <= e.Word)
				assert.True(t, ok, "entries %v and %v out of order", prev, e)
			}
		}

		// compare against a brute force ranking of the whole corpus
		var all []corpus.WordEntry
		for _, e := range store.Entries() {
			if strings.HasPrefix(e.Word, prefix) {
				all = append(all, e)
			}
		}
		for i := 0; i < len(all); i++ {
			for j := i + 1; j < len(all); j++ {
				if Less(all[j], all[i]) {
					all[i], all[j] = all[j], all[i]
				}
			}
		}
		if len(all) > DefaultLimit {
			all = all[:DefaultLimit]
		}
		assert.Equal(t, all, got, prefix)
	}
}

func TestSuggestCustomLimit(t *testing.T) {
	engine := NewEngine(randomStore(7, 500), Options{Limit: 3})
	got, err := engine.Suggest("a")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	engine = NewEngine(randomStore(7, 500), Options{Limit: 50})
	got, err = engine.Suggest("a")
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)
}

func TestSuggestUsesCache(t *testing.T) {
	engine := newScenarioEngine(Options{})

	first, err := engine.Suggest("app")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), engine.Scans())

	second, err := engine.Suggest("app")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), engine.Scans())

	// misses are cached as well
	_, err = engine.Suggest("xyz")
	assert.ErrorIs(t, err, ErrSuggestionsNotFound)
	_, err = engine.Suggest("xyz")
	assert.ErrorIs(t, err, ErrSuggestionsNotFound)
	assert.Equal(t, uint64(2), engine.Scans())

	stats := engine.Stats()
	assert.Equal(t, 2, stats["cacheHits"])
	assert.Equal(t, 2, stats["cacheMisses"])
	assert.Equal(t, 2, stats["cacheEntries"])
	assert.Equal(t, 4, stats["totalWords"])
}

func TestSuggestReturnsCopy(t *testing.T) {
	engine := newScenarioEngine(Options{})

	got, err := engine.Suggest("app")
	require.NoError(t, err)
	got[0].Word = "mutated"

	again, err := engine.Suggest("app")
	require.NoError(t, err)
	assert.Equal(t, "apply", again[0].Word)
}

func TestSuggestFoldCase(t *testing.T) {
	store := corpus.New([]corpus.WordEntry{
		{Word: "Apple", Frequency: 5},
		{Word: "apple", Frequency: 9},
		{Word: "APPLY", Frequency: 1},
		{Word: "banana", Frequency: 3},
	})

	exact := NewEngine(store, Options{})
	got, err := exact.Suggest("App")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple"}, words(got))

	folded := NewEngine(store, Options{FoldCase: true})
	upper, err := folded.Suggest("App")
	require.NoError(t, err)
	lower, err := folded.Suggest("app")
	require.NoError(t, err)

	assert.Equal(t, []string{"apple", "Apple", "APPLY"}, words(upper))
	assert.Equal(t, upper, lower)
	assert.Equal(t, uint64(1), folded.Scans())
}

func TestSuggestConcurrent(t *testing.T) {
	engine := NewEngine(randomStore(99, 5000), Options{})
	want, err := NewEngine(randomStore(99, 5000), Options{}).Suggest("ab")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]corpus.WordEntry, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				// other prefixes force concurrent inserts
				engine.Suggest(fmt.Sprintf("%c", 'a'+rune(j%3)))
			}
			got, err := engine.Suggest("ab")
			if err == nil {
				results[i] = got
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
	assert.LessOrEqual(t, engine.Scans(), uint64(len(results)*4))
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)
	a := []corpus.WordEntry{{Word: "a", Frequency: 1}}
	b := []corpus.WordEntry{{Word: "b", Frequency: 1}}
	c := []corpus.WordEntry{{Word: "c", Frequency: 1}}

	cache.Add("a", a)
	cache.Add("b", b)
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Add("c", c)
	assert.Equal(t, 2, cache.Len())

	_, ok = cache.Get("b")
	assert.False(t, ok, "least recently used prefix should be evicted")
	_, ok = cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, cache.Stats()["cacheEvictions"])
}

func TestCacheAddKeepsFirstValue(t *testing.T) {
	cache := NewCache(0)
	first := []corpus.WordEntry{{Word: "one", Frequency: 1}}
	second := []corpus.WordEntry{{Word: "two", Frequency: 2}}

	assert.Equal(t, first, cache.Add("p", first))
	assert.Equal(t, first, cache.Add("p", second))

	got, ok := cache.Get("p")
	require.True(t, ok)
	assert.Equal(t, first, got)
}

type failingIndex struct{ err error }

func (f failingIndex) Visit(string, func(corpus.WordEntry) error) error { return f.err }

func TestSuggestVisitErrorIsNotCached(t *testing.T) {
	engine := newScenarioEngine(Options{})
	visitErr := errors.New("index unavailable")
	engine.index = failingIndex{err: visitErr}

	_, err := engine.Suggest("app")
	require.Error(t, err)
	assert.ErrorIs(t, err, visitErr)
	assert.NotErrorIs(t, err, ErrSuggestionsNotFound)
	assert.Equal(t, 0, engine.cache.Len())

	engine.index = engine.store
	got, err := engine.Suggest("app")
	require.NoError(t, err)
	assert.Equal(t, []string{"apply", "app", "apple"}, words(got))
}
