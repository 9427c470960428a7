// Package cli holds the interactive front ends: a local REPL that queries the engine
// directly for debugging, and a line client for a running server.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/autocomplete/internal/utils"
	"github.com/bastiangx/autocomplete/pkg/protocol"
	"github.com/bastiangx/autocomplete/pkg/suggest"
	"github.com/charmbracelet/log"
)

// InputHandler reads prefixes from a reader and prints ranked suggestions with their
// frequencies. Input goes through the same validation as network commands, so either a
// bare prefix or a full "get <prefix>" line is accepted.
type InputHandler struct {
	engine       suggest.Suggester
	in           io.Reader
	logger       *log.Logger
	requestCount int
}

func NewInputHandler(engine suggest.Suggester, in io.Reader, logger *log.Logger) *InputHandler {
	return &InputHandler{
		engine: engine,
		in:     in,
		logger: logger,
	}
}

// Start runs the loop until the input is exhausted. EOF is not an error.
func (h *InputHandler) Start() error {
	h.logger.Print("Autocomplete CLI")
	h.logger.Print("type a prefix and press Enter to see the suggestions (Ctrl+C to exit):")

	reader := bufio.NewReader(h.in)
	for {
		h.logger.Print("> ")
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			h.handleInput(strings.TrimSpace(line))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Requests returns how many non-empty lines were handled.
func (h *InputHandler) Requests() int {
	return h.requestCount
}

func (h *InputHandler) handleInput(input string) {
	h.requestCount++

	raw := input
	if !strings.Contains(input, " ") {
		raw = "get " + input
	}
	cmd, err := protocol.Parse(raw)
	if err != nil {
		h.logger.Errorf("Invalid input '%s': prefix must be %d-%d latin letters",
			input, protocol.MinPrefixLen, protocol.MaxPrefixLen)
		return
	}
	prefix := cmd.(protocol.GetSuggestions).Prefix

	start := time.Now()
	suggestions, err := h.engine.Suggest(prefix)
	elapsed := time.Since(start)
	h.logger.Debugf("Took [ %v ] for prefix '%s'", elapsed, prefix)

	switch {
	case errors.Is(err, suggest.ErrSuggestionsNotFound):
		h.logger.Warnf("No suggestions found for prefix: '%s'", prefix)
		return
	case err != nil:
		h.logger.Errorf("Suggest failed for prefix '%s': %v", prefix, err)
		return
	}

	h.logger.Printf("Found %d suggestions for prefix '%s':", len(suggestions), prefix)
	for i, s := range suggestions {
		freq := utils.FormatWithCommas(s.Frequency)
		word := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Word)
		h.logger.Printf("%2d. %-40s (freq: %8s)", i+1, word, freq)
	}
}
