package intersector

import (
	"slices"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/extracttest"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/location"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/precompute"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
)

const (
	minGap  = 1
	maxSpan = 8
)

type env struct {
	vocab   *phrase.MemoryVocabulary
	builder *phrase.Builder
	sa      *corpus.SuffixArray
	pre     *precompute.Precomputation
}

func newEnv(t *testing.T) *env {
	t.Helper()
	lines := extracttest.RandomLines(11, 40, "w", "x", "y", "z")
	vocab := phrase.NewMemoryVocabulary()
	sa := corpus.NewSuffixArray(corpus.FromLines(lines, vocab))
	pre := precompute.Build(sa, precompute.BuildOptions{
		MinFrequency:    5,
		MaxPhraseLen:    2,
		MaxPhrases:      12,
		MinGapSize:      minGap,
		MaxRuleSpan:     maxSpan,
		MaxNonterminals: 2,
	})
	return &env{vocab: vocab, builder: phrase.NewBuilder(vocab), sa: sa, pre: pre}
}

func (e *env) parse(pattern string) phrase.Phrase {
	return extracttest.Parse(e.vocab, pattern)
}

func (e *env) intersector(pre Precomputation, baezaYates bool, rec Recorder) *Intersector {
	return NewDefault(e.vocab, pre, e.sa, Config{
		MinGapSize:       minGap,
		MaxRuleSpan:      maxSpan,
		UseBaezaYates:    baezaYates,
		BaezaYatesFactor: 1,
	}, rec)
}

// locate computes the location of p's terminal-anchored form the way the
// extraction driver does: contiguous phrases by suffix-array lookup, gapped
// ones by intersecting their prefix and suffix.
func (e *env) locate(in *Intersector, p phrase.Phrase) location.PhraseLocation {
	p = e.builder.Trim(p)
	if p.Arity() == 0 {
		return location.NewRange(e.sa.Find(p.Symbols()))
	}
	symbols := p.Symbols()
	prefix := e.builder.Build(symbols[:len(symbols)-1])
	suffix := e.builder.Build(symbols[1:])
	prefixLoc := e.locate(in, prefix)
	suffixLoc := e.locate(in, suffix)
	return in.Intersect(prefix, &prefixLoc, suffix, &suffixLoc, p)
}

func (e *env) enumerate(p phrase.Phrase) []int {
	return extracttest.Enumerate(e.sa.GetData(), e.vocab, p, minGap, maxSpan)
}

var patterns = []string{
	"w X x",
	"x X x",
	"w x X y",
	"w X x y",
	"w X x X y",
	"z X w z X y",
	"y y X z",
}

func TestFastAndSlowPathsAgree(t *testing.T) {
	e := newEnv(t)
	variants := map[string]*Intersector{
		"linear":                 e.intersector(nil, false, nil),
		"baeza_yates":            e.intersector(nil, true, nil),
		"precomputed_linear":     e.intersector(e.pre, false, nil),
		"precomputed_baezayates": e.intersector(e.pre, true, nil),
	}
	for _, pattern := range patterns {
		p := e.parse(pattern)
		want := e.enumerate(p)
		for name, in := range variants {
			got := e.locate(in, p)
			if got.NumSubpatterns != p.Arity()+1 {
				t.Errorf("%s %q: NumSubpatterns = %d, want %d", name, pattern, got.NumSubpatterns, p.Arity()+1)
			}
			if !slices.Equal(got.Positions(), want) {
				t.Errorf("%s %q:\ngot  %v\nwant %v", name, pattern, got.Positions(), want)
			}
		}
	}
}

func TestCollocationHitReturnsCachedMatches(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	in := e.intersector(e.pre, true, rec)

	p := e.parse("w X x")
	cached, ok := e.pre.GetCollocationMatches(p.Symbols())
	if !ok {
		t.Fatal("fixture precomputation lacks collocation 'w X x'")
	}
	prefix := e.builder.Build(p.Symbols()[:2])
	suffix := e.builder.Build(p.Symbols()[1:])
	prefixLoc := location.NewRange(e.sa.Find(prefix.Symbols()[:1]))
	suffixLoc := location.NewRange(e.sa.Find(suffix.Symbols()[1:]))

	got := in.Intersect(prefix, &prefixLoc, suffix, &suffixLoc, p)
	if got.Matchings != cached {
		t.Error("collocation hit did not return the cached buffer")
	}
	if prefixLoc.Materialized() || suffixLoc.Materialized() {
		t.Error("collocation hit materialized the sub-pattern locations")
	}
	if !slices.Equal(rec.paths, []string{"collocation"}) {
		t.Errorf("intersection paths = %v, want [collocation]", rec.paths)
	}
}

func TestExtendFromSuffixArray(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	in := e.intersector(nil, false, rec)

	p := e.parse("w x")
	loc := location.NewRange(e.sa.Find(p.Symbols()))
	size := loc.Size()
	in.ExtendPhraseLocation(p, &loc)

	if !loc.Materialized() || loc.NumSubpatterns != 1 || loc.SALow != 0 || loc.SAHigh != 0 {
		t.Fatalf("post-condition violated: %+v", loc)
	}
	if loc.Size() != size {
		t.Errorf("Size() = %d, want %d", loc.Size(), size)
	}
	if !slices.IsSorted(loc.Positions()) {
		t.Errorf("positions not sorted: %v", loc.Positions())
	}
	if want := e.enumerate(p); !slices.Equal(loc.Positions(), want) {
		t.Errorf("positions = %v, want %v", loc.Positions(), want)
	}

	before := loc.Matchings
	in.ExtendPhraseLocation(p, &loc)
	if loc.Matchings != before {
		t.Error("extending a materialized location replaced its matchings")
	}
	if !slices.Equal(rec.sources, []string{"suffix_array"}) {
		t.Errorf("extend sources = %v, want [suffix_array]", rec.sources)
	}
}

func TestExtendFromInvertedIndexSharesBuffer(t *testing.T) {
	e := newEnv(t)
	in := e.intersector(e.pre, false, nil)

	p := e.parse("w X")
	buf, ok := e.pre.GetContiguousMatches(p.Symbols())
	if !ok {
		t.Fatal("fixture precomputation lacks 'w X'")
	}
	loc := location.NewRange(e.sa.Find(p.Symbols()[:1]))
	in.ExtendPhraseLocation(p, &loc)
	if loc.Matchings != buf {
		t.Error("inverted index hit copied the positions")
	}
	if loc.NumSubpatterns != 1 || loc.SALow != 0 || loc.SAHigh != 0 {
		t.Errorf("post-condition violated: %+v", loc)
	}
}

func TestExtendEmptyRange(t *testing.T) {
	e := newEnv(t)
	in := e.intersector(nil, false, nil)
	loc := location.NewRange(3, 3)
	in.ExtendPhraseLocation(e.parse("w"), &loc)
	if !loc.Materialized() || !loc.Empty() {
		t.Errorf("empty range extended to %+v", loc)
	}
}

func TestIntersectRejectsNonTerminalBoundary(t *testing.T) {
	e := newEnv(t)
	in := e.intersector(nil, false, nil)
	p := e.parse("w X x X")
	prefix := e.builder.Build(p.Symbols()[:3])
	suffix := e.builder.Build(p.Symbols()[1:])
	var prefixLoc, suffixLoc location.PhraseLocation

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !apperrors.Is(err, apperrors.ErrNonTerminalBoundary) {
			t.Errorf("recovered %v, want ErrNonTerminalBoundary", r)
		}
	}()
	in.Intersect(prefix, &prefixLoc, suffix, &suffixLoc, p)
}

type recorder struct {
	paths      []string
	sources    []string
	strategies []string
}

func (r *recorder) ObserveIntersection(path string, _ time.Duration) {
	r.paths = append(r.paths, path)
}

func (r *recorder) ObserveExtend(source string, _ time.Duration) {
	r.sources = append(r.sources, source)
}

func (r *recorder) ObserveMerge(strategy string, _ time.Duration) {
	r.strategies = append(r.strategies, strategy)
}
