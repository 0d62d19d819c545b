package finder

import (
	"slices"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/extracttest"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/intersector"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/lattice"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/location"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

var testOpts = Options{
	MinGapSize:      1,
	MaxRuleSpan:     4,
	MaxPhraseLen:    3,
	MaxNonterminals: 2,
}

type fixture struct {
	vocab *phrase.MemoryVocabulary
	sa    *corpus.SuffixArray
}

func newFixture(lines ...string) *fixture {
	vocab := phrase.NewMemoryVocabulary()
	return &fixture{vocab: vocab, sa: corpus.NewSuffixArray(corpus.FromLines(lines, vocab))}
}

func (f *fixture) finder(opts Options) *Finder {
	in := intersector.NewDefault(f.vocab, nil, f.sa, intersector.Config{
		MinGapSize:       opts.MinGapSize,
		MaxRuleSpan:      opts.MaxRuleSpan,
		UseBaezaYates:    true,
		BaezaYatesFactor: 1,
	}, nil)
	return New(f.vocab, f.sa, in, opts)
}

func (f *fixture) positions(loc *location.PhraseLocation) []int {
	if loc.Materialized() {
		return loc.Positions()
	}
	var out []int
	for i := loc.SALow; i < loc.SAHigh; i++ {
		out = append(out, f.sa.GetSuffix(i))
	}
	slices.Sort(out)
	return out
}

type found struct {
	pattern string
	start   int
}

func index(vocab phrase.Vocabulary, patterns []Pattern) map[found]Pattern {
	out := make(map[found]Pattern)
	for _, p := range patterns {
		out[found{p.Phrase.String(vocab), p.Start}] = p
	}
	return out
}

func TestFindOverSentence(t *testing.T) {
	f := newFixture("a b c d", "a x c d", "b c a b")
	patterns := f.finder(testOpts).Find(lattice.FromSentence("a b c d", f.vocab))
	byKey := index(f.vocab, patterns)

	for _, want := range []found{
		{"a", 0},
		{"a b c", 0},
		{"a [X,1] c", 0},
		{"a [X,1] d", 0},
		{"b [X,1] d", 1},
		{"c d", 2},
		{"d", 3},
	} {
		if _, ok := byKey[want]; !ok {
			t.Errorf("pattern %q from node %d not found", want.pattern, want.start)
		}
	}
	for _, unwanted := range []found{
		{"a b c d", 0},
		{"a [X,1] c d", 0},
		{"b c", 0},
	} {
		if _, ok := byKey[unwanted]; ok {
			t.Errorf("unexpected pattern %q from node %d", unwanted.pattern, unwanted.start)
		}
	}
	if p := byKey[found{"a b c", 0}]; p.End != 3 {
		t.Errorf("'a b c' ends at node %d, want 3", p.End)
	}
}

func TestFoundPatternsAreValidAndLocated(t *testing.T) {
	f := newFixture(extracttest.RandomLines(3, 30, "a", "b", "c", "d")...)
	patterns := f.finder(testOpts).Find(lattice.FromSentence("a b c d a b", f.vocab))
	if len(patterns) == 0 {
		t.Fatal("no patterns found")
	}

	seen := make(map[found]bool)
	for _, p := range patterns {
		name := p.Phrase.String(f.vocab)
		key := found{name, p.Start}
		if seen[key] {
			t.Errorf("pattern %q from node %d reported twice", name, p.Start)
		}
		seen[key] = true

		if p.Phrase.Size() > testOpts.MaxPhraseLen || p.Phrase.Arity() > testOpts.MaxNonterminals {
			t.Errorf("pattern %q exceeds the size limits", name)
		}
		if !p.Phrase.StartsWithTerminal() || !p.Phrase.EndsWithTerminal() {
			t.Errorf("pattern %q is not terminal-anchored", name)
		}
		if p.End-p.Start > testOpts.MaxRuleSpan {
			t.Errorf("pattern %q spans nodes %d..%d", name, p.Start, p.End)
		}
		want := extracttest.Enumerate(f.sa.GetData(), f.vocab, p.Phrase, testOpts.MinGapSize, testOpts.MaxRuleSpan)
		if got := f.positions(p.Location); !slices.Equal(got, want) {
			t.Errorf("pattern %q: positions %v, want %v", name, got, want)
		}
		if p.Location.Empty() {
			t.Errorf("pattern %q has no occurrences", name)
		}
	}
}

func TestFindSkipsUnknownWords(t *testing.T) {
	f := newFixture("a b", "b a")
	patterns := f.finder(testOpts).Find(lattice.FromSentence("a zzz b", f.vocab))
	for _, p := range patterns {
		for _, s := range p.Phrase.Symbols() {
			if f.vocab.IsTerminal(s) && f.vocab.GetTerminalValue(s) == "zzz" {
				t.Errorf("pattern %q contains a word missing from the corpus", p.Phrase.String(f.vocab))
			}
		}
	}
	byKey := index(f.vocab, patterns)
	if _, ok := byKey[found{"a", 0}]; !ok {
		t.Error("pattern 'a' missing")
	}
}

func TestFindWithoutNonterminals(t *testing.T) {
	f := newFixture("a b c", "a c")
	opts := testOpts
	opts.MaxNonterminals = 0
	for _, p := range f.finder(opts).Find(lattice.FromSentence("a b c", f.vocab)) {
		if p.Phrase.Arity() != 0 {
			t.Errorf("gapped pattern %q found with gaps disabled", p.Phrase.String(f.vocab))
		}
	}
}

func TestFindOverEpsilonLattice(t *testing.T) {
	f := newFixture("a b", "b")
	l, err := lattice.Parse("((('a', 0, 1),('*EPS*', 0, 1),),(('b', 0, 1),),)", f.vocab)
	if err != nil {
		t.Fatal(err)
	}
	byKey := index(f.vocab, f.finder(testOpts).Find(l))
	for _, want := range []found{{"a b", 0}, {"b", 0}, {"b", 1}} {
		if _, ok := byKey[want]; !ok {
			t.Errorf("pattern %q from node %d not found", want.pattern, want.start)
		}
	}
}
