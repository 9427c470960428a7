// Package suggest is the core, ranking corpus words for a prefix and memoizing the results.
package suggest

import "github.com/bastiangx/autocomplete/pkg/corpus"

// Suggester returns the ranked completions for a prefix.
type Suggester interface {
	// Suggest returns at most Limit entries ordered by descending frequency, then
	// ascending word. It returns ErrSuggestionsNotFound when nothing matches.
	Suggest(prefix string) ([]corpus.WordEntry, error)

	// Stats returns counters about the corpus and cache.
	Stats() map[string]int
}
