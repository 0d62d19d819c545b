// Package extracttest provides corpus fixtures and a brute-force occurrence
// enumerator for testing the matching engine.
package extracttest

import (
	"math/rand"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

// RandomLines returns n sentences of 3 to 17 words drawn from words.
func RandomLines(seed int64, n int, words ...string) []string {
	rng := rand.New(rand.NewSource(seed))
	lines := make([]string, n)
	for i := range lines {
		sentence := make([]string, 3+rng.Intn(15))
		for j := range sentence {
			sentence[j] = words[rng.Intn(len(words))]
		}
		lines[i] = strings.Join(sentence, " ")
	}
	return lines
}

// Parse builds a phrase from space-separated words, "X" marking a gap.
func Parse(vocab phrase.Vocabulary, pattern string) phrase.Phrase {
	var symbols []int
	for _, w := range strings.Fields(pattern) {
		if w == "X" {
			symbols = append(symbols, vocab.GetNonterminalIndex(1))
			continue
		}
		symbols = append(symbols, vocab.GetTerminalIndex(w))
	}
	return phrase.NewBuilder(vocab).Build(symbols)
}

// Enumerate lists, in lexicographic order, the occurrence tuples of a
// terminal-anchored phrase: one start position per chunk, chunks inside one
// sentence, gaps of at least minGap words and a total span of at most
// maxSpan words.
func Enumerate(data *corpus.DataArray, vocab phrase.Vocabulary, p phrase.Phrase, minGap, maxSpan int) []int {
	var chunks [][]int
	current := []int{}
	for _, s := range p.Symbols() {
		if vocab.IsTerminal(s) {
			current = append(current, s)
			continue
		}
		chunks = append(chunks, current)
		current = []int{}
	}
	chunks = append(chunks, current)

	words := data.GetData()
	var out []int
	for sid := 0; sid < data.GetNumSentences(); sid++ {
		start := data.GetSentenceStart(sid)
		end := start + data.GetSentenceLen(sid)
		var walk func(tuple []int, from int)
		walk = func(tuple []int, from int) {
			if len(tuple) == len(chunks) {
				last := len(chunks) - 1
				if tuple[last]+len(chunks[last])-tuple[0] <= maxSpan {
					out = append(out, tuple...)
				}
				return
			}
			chunk := chunks[len(tuple)]
			for pos := from; pos+len(chunk) <= end; pos++ {
				if slices.Equal(words[pos:pos+len(chunk)], chunk) {
					walk(append(slices.Clone(tuple), pos), pos+len(chunk)+minGap)
				}
			}
		}
		walk(nil, start)
	}
	return out
}
