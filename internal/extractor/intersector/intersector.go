// Package intersector computes the occurrences of gapped phrases by joining
// the occurrences of their prefix and suffix sub-patterns.
package intersector

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/location"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/merger"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/veb"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
)

// Recorder receives the timings of every intersection, location extension
// and merge. *metrics.Metrics implements it.
type Recorder interface {
	merger.Recorder
	ObserveIntersection(path string, d time.Duration)
	ObserveExtend(source string, d time.Duration)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

func (NopRecorder) ObserveIntersection(string, time.Duration) {}
func (NopRecorder) ObserveExtend(string, time.Duration)       {}
func (NopRecorder) ObserveMerge(string, time.Duration)        {}

// Precomputation is the read-only cache of frequent pattern occurrences.
type Precomputation interface {
	// GetContiguousMatches returns the sorted positions of a frequent
	// contiguous phrase, optionally flanked by one gap.
	GetContiguousMatches(pattern []int) (*location.Buffer, bool)
	// GetCollocationMatches returns the occurrence tuples of a frequent
	// gapped phrase.
	GetCollocationMatches(pattern []int) (*location.Buffer, bool)
}

// Suffixes is the part of the suffix array needed to materialize a range.
type Suffixes interface {
	GetSize() int
	GetSuffix(i int) int
}

// Options selects the merge strategy.
type Options struct {
	// UseBaezaYates selects the binary search merger over the linear one.
	UseBaezaYates bool
}

// Intersector is not safe for concurrent use; every worker owns one over the
// shared read-only corpus and precomputation.
type Intersector struct {
	vocab          phrase.Vocabulary
	precomputation Precomputation
	suffixes       Suffixes
	linear         merger.Merger
	binary         merger.Merger
	recorder       Recorder
	opts           Options
}

// New builds an Intersector from pre-built mergers. precomputation may be nil.
func New(vocab phrase.Vocabulary, precomputation Precomputation, suffixes Suffixes,
	linear, binary merger.Merger, recorder Recorder, opts Options) *Intersector {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Intersector{
		vocab:          vocab,
		precomputation: precomputation,
		suffixes:       suffixes,
		linear:         linear,
		binary:         binary,
		recorder:       recorder,
		opts:           opts,
	}
}

// Config holds the parameters NewDefault needs to build the mergers.
type Config struct {
	MinGapSize       int
	MaxRuleSpan      int
	UseBaezaYates    bool
	BaezaYatesFactor float64
}

// NewDefault builds both mergers over sa's corpus.
func NewDefault(vocab phrase.Vocabulary, precomputation Precomputation, sa *corpus.SuffixArray,
	cfg Config, recorder Recorder) *Intersector {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	comparator := merger.NewComparator(cfg.MinGapSize, cfg.MaxRuleSpan)
	linear := merger.NewLinearMerger(vocab, sa.GetData(), comparator, recorder)
	binary := merger.NewBinarySearchMerger(vocab, sa.GetData(), linear, comparator, recorder, cfg.BaezaYatesFactor, false)
	return New(vocab, precomputation, sa, linear, binary, recorder, Options{UseBaezaYates: cfg.UseBaezaYates})
}

// Intersect returns the occurrences of phrase, given the locations of its
// prefix (phrase without its last symbol) and suffix (phrase without its
// first symbol). Both locations are materialized in place so later calls
// reuse them.
//
// phrase must start and end with a terminal; anything else is a caller bug
// and panics with ErrNonTerminalBoundary.
func (in *Intersector) Intersect(prefix phrase.Phrase, prefixLocation *location.PhraseLocation,
	suffix phrase.Phrase, suffixLocation *location.PhraseLocation,
	full phrase.Phrase) location.PhraseLocation {
	if full.Empty() || !in.vocab.IsTerminal(full.GetSymbol(0)) || !in.vocab.IsTerminal(full.GetSymbol(full.Size()-1)) {
		panic(apperrors.Newf(apperrors.ErrNonTerminalBoundary, "intersect %q", full.String(in.vocab)))
	}

	start := time.Now()
	if in.precomputation != nil {
		if buf, ok := in.precomputation.GetCollocationMatches(full.Symbols()); ok {
			in.recorder.ObserveIntersection("collocation", time.Since(start))
			return location.Shared(buf, full.Arity()+1)
		}
	}

	in.ExtendPhraseLocation(prefix, prefixLocation)
	in.ExtendPhraseLocation(suffix, suffixLocation)

	m := in.linear
	if in.opts.UseBaezaYates {
		m = in.binary
	}
	positions := m.Merge(nil, full, suffix,
		prefixLocation.Positions(), suffixLocation.Positions(),
		prefixLocation.NumSubpatterns, suffixLocation.NumSubpatterns)

	in.recorder.ObserveIntersection("merge", time.Since(start))
	return location.NewMatchings(positions, full.Arity()+1)
}

// ExtendPhraseLocation materializes loc as a sorted position list. It does
// nothing when loc already holds matchings.
func (in *Intersector) ExtendPhraseLocation(p phrase.Phrase, loc *location.PhraseLocation) {
	if loc.Materialized() {
		return
	}

	start := time.Now()
	if in.precomputation != nil {
		if buf, ok := in.precomputation.GetContiguousMatches(p.Symbols()); ok {
			*loc = location.Shared(buf, 1)
			in.recorder.ObserveExtend("inverted_index", time.Since(start))
			return
		}
	}

	positions := make([]int, 0, loc.SAHigh-loc.SALow)
	if loc.SAHigh > loc.SALow {
		tree := veb.New(in.suffixes.GetSize())
		for i := loc.SALow; i < loc.SAHigh; i++ {
			tree.Insert(in.suffixes.GetSuffix(i))
		}
		positions = tree.Drain(positions)
	}
	*loc = location.NewMatchings(positions, 1)
	in.recorder.ObserveExtend("suffix_array", time.Since(start))
}
