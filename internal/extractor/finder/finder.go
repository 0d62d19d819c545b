// Package finder enumerates the phrase patterns of an input lattice that may
// become the source side of hierarchical rules, and locates each one in the
// corpus.
package finder

import (
	"encoding/binary"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/intersector"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/lattice"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/location"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

// Options limits the patterns a Finder reports.
type Options struct {
	MinGapSize      int
	MaxRuleSpan     int
	MaxPhraseLen    int
	MaxNonterminals int
}

// Pattern is a terminal-anchored phrase matched from lattice node Start to
// End, with its corpus occurrences.
type Pattern struct {
	Phrase   phrase.Phrase
	Start    int
	End      int
	Location *location.PhraseLocation
}

// Finder memoises locations by pattern, so it is meant for one sentence and
// one goroutine at a time.
type Finder struct {
	vocab   phrase.Vocabulary
	builder *phrase.Builder
	sa      *corpus.SuffixArray
	in      *intersector.Intersector
	opts    Options

	locations map[string]*location.PhraseLocation
	ranges    map[string][2]int
}

// New returns a Finder for one sentence. in must not be shared with another
// Finder.
func New(vocab phrase.Vocabulary, sa *corpus.SuffixArray, in *intersector.Intersector, opts Options) *Finder {
	return &Finder{
		vocab:     vocab,
		builder:   phrase.NewBuilder(vocab),
		sa:        sa,
		in:        in,
		opts:      opts,
		locations: make(map[string]*location.PhraseLocation),
		ranges:    make(map[string][2]int),
	}
}

type state struct {
	phrase phrase.Phrase
	node   int
	span   int
}

// Find returns every pattern of at most MaxPhraseLen symbols, MaxNonterminals
// gaps and MaxRuleSpan lattice edges that starts and ends with a terminal and
// occurs in the corpus. Each (pattern, start node) pair is reported once, at
// the first end node reached. Start nodes are visited from last to first.
func (f *Finder) Find(l *lattice.Lattice) []Pattern {
	var out []Pattern
	for start := l.Size() - 1; start >= 0; start-- {
		seen := make(map[string]bool)
		queue := []state{{node: start}}
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]

			for _, e := range l.Transitions(s.node) {
				if s.phrase.Size()+1 > f.opts.MaxPhraseLen || s.span+1 > f.opts.MaxRuleSpan {
					break
				}
				next := f.builder.Extend(s.phrase, e.Symbol)
				loc := f.locate(next)
				if loc.Empty() {
					continue
				}
				if k := key(next.Symbols()); !seen[k] {
					seen[k] = true
					out = append(out, Pattern{Phrase: next, Start: start, End: e.Node, Location: loc})
				}
				queue = append(queue, state{phrase: next, node: e.Node, span: s.span + 1})
			}

			if s.phrase.Empty() || !s.phrase.EndsWithTerminal() ||
				s.phrase.Arity() >= f.opts.MaxNonterminals || s.phrase.Size()+2 > f.opts.MaxPhraseLen {
				continue
			}
			// Leave room for at least one terminal after the gap.
			gapped := f.builder.Extend(s.phrase, f.vocab.GetNonterminalIndex(s.phrase.Arity()+1))
			for _, ext := range l.Extensions(s.node, f.opts.MinGapSize, f.opts.MaxRuleSpan-s.span-1) {
				queue = append(queue, state{phrase: gapped, node: ext.Node, span: s.span + ext.Distance})
			}
		}
	}
	return out
}

// locate returns the memoised location of p's terminal-anchored form,
// computing it on first use. Contiguous phrases are narrowed word by word in
// the suffix array; gapped ones are intersected from their prefix and suffix.
func (f *Finder) locate(p phrase.Phrase) *location.PhraseLocation {
	p = f.builder.Trim(p)
	k := key(p.Symbols())
	if loc, ok := f.locations[k]; ok {
		return loc
	}

	var loc location.PhraseLocation
	if p.Arity() == 0 {
		r := f.rangeOf(p.Symbols())
		loc = location.NewRange(r[0], r[1])
	} else {
		symbols := p.Symbols()
		prefix := f.builder.Build(symbols[:len(symbols)-1])
		suffix := f.builder.Build(symbols[1:])
		prefixLoc := f.locate(prefix)
		suffixLoc := f.locate(suffix)
		if prefixLoc.Empty() || suffixLoc.Empty() {
			loc = location.NewMatchings(nil, p.Arity()+1)
		} else {
			loc = f.in.Intersect(prefix, prefixLoc, suffix, suffixLoc, p)
		}
	}
	f.locations[k] = &loc
	return &loc
}

// rangeOf returns the suffix-array range of a contiguous phrase. Ranges are
// kept apart from locations because materializing a location drops its range.
func (f *Finder) rangeOf(symbols []int) [2]int {
	k := key(symbols)
	if r, ok := f.ranges[k]; ok {
		return r
	}
	low, high := 0, f.sa.GetSize()
	if n := len(symbols); n > 1 {
		parent := f.rangeOf(symbols[:n-1])
		low, high = parent[0], parent[1]
	}
	if low < high {
		low, high = f.sa.Lookup(low, high, symbols[len(symbols)-1], len(symbols)-1)
	}
	r := [2]int{low, high}
	f.ranges[k] = r
	return r
}

func key(symbols []int) string {
	buf := make([]byte, 0, len(symbols)*2)
	for _, s := range symbols {
		buf = binary.AppendVarint(buf, int64(s))
	}
	return string(buf)
}
