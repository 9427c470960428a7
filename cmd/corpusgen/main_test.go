package main

import (
	"math/rand"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/bastiangx/autocomplete/pkg/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	store := generate(rand.New(rand.NewSource(7)), 500, 100)
	require.Positive(t, store.Len())

	word := regexp.MustCompile(`^[a-z]{1,15}$`)
	for _, e := range store.Entries() {
		assert.Regexp(t, word, e.Word)
		assert.GreaterOrEqual(t, e.Frequency, 1)
		assert.LessOrEqual(t, e.Frequency, 100)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := generate(rand.New(rand.NewSource(42)), 200, 1000)
	b := generate(rand.New(rand.NewSource(42)), 200, 1000)
	assert.Equal(t, a.Entries(), b.Entries())
}

func TestWriteRoundTrip(t *testing.T) {
	store := generate(rand.New(rand.NewSource(1)), 300, 50)
	dir := t.TempDir()

	for _, name := range []string{"words.txt", "nested/words.msgpack"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, write(path, corpus.FormatForPath(path), store))

			loaded, err := corpus.LoadFile(path, corpus.LoadOptions{})
			require.NoError(t, err)
			assert.Equal(t, store.Entries(), loaded.Entries())
			assert.NoFileExists(t, path+".tmp")
		})
	}
}
