// Command corpusgen writes a random word frequency corpus for load and benchmark runs.
//
//	corpusgen -o word_freq.txt -n 100000
//	corpusgen -o words.msgpack -format msgpack -seed 42
//
// Words are lowercase latin letters of length 1 to 15 with frequencies in [1, max-freq].
// The output is written under an exclusive lock on <output>.lock, which the server's
// loader also takes, so a server never reads a half written corpus.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/autocomplete/internal/logger"
	"github.com/bastiangx/autocomplete/internal/utils"
	"github.com/bastiangx/autocomplete/pkg/corpus"
	"github.com/bastiangx/autocomplete/pkg/protocol"
	"github.com/charmbracelet/log"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

func main() {
	output := flag.String("o", "word_freq.txt", "Output file")
	count := flag.Int("n", 100000, "Number of lines to generate")
	seed := flag.Int64("seed", 0, "Random seed, 0 uses the current time")
	maxFreq := flag.Int("max-freq", 1000000, "Maximum word frequency")
	format := flag.String("format", "", "Output format: text or msgpack (default from the file extension)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	flag.Parse()

	logger.Setup("info", *debugMode)

	if *count < 0 || *maxFreq < 1 {
		log.Fatalf("Invalid arguments: -n must be >= 0 and -max-freq >= 1")
	}

	outFormat := corpus.FormatForPath(*output)
	if *format != "" {
		f, err := corpus.ParseFormat(*format)
		if err != nil {
			log.Fatalf("%v", err)
		}
		outFormat = f
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	log.Debug("Generating corpus", "lines", *count, "seed", *seed, "format", outFormat)

	store := generate(rand.New(rand.NewSource(*seed)), *count, *maxFreq)
	if err := write(*output, outFormat, store); err != nil {
		log.Fatalf("Failed to write corpus: %v", err)
	}

	log.Infof("Wrote %s entries to %s", utils.FormatWithCommas(store.Len()), *output)
}

func generate(rng *rand.Rand, n, maxFreq int) *corpus.Store {
	entries := make([]corpus.WordEntry, n)
	buf := make([]byte, protocol.MaxPrefixLen)
	for i := range entries {
		length := protocol.MinPrefixLen + rng.Intn(protocol.MaxPrefixLen-protocol.MinPrefixLen+1)
		for j := 0; j < length; j++ {
			buf[j] = letters[rng.Intn(len(letters))]
		}
		entries[i] = corpus.WordEntry{Word: string(buf[:length]), Frequency: 1 + rng.Intn(maxFreq)}
	}
	return corpus.New(entries)
}

func write(path string, format corpus.FileFormat, store *corpus.Store) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	unlock, err := corpus.LockForWrite(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	// write to a sibling file and rename so readers see either the old or the new corpus
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	switch format {
	case corpus.FormatSnapshot:
		err = corpus.WriteSnapshot(w, store)
	default:
		err = corpus.WriteText(w, store)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
