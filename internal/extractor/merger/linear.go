package merger

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/location"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

// SentenceIndex maps a corpus position to its sentence.
type SentenceIndex interface {
	GetSentenceID(position int) int
}

// Recorder receives merge timings.
type Recorder interface {
	ObserveMerge(strategy string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMerge(string, time.Duration) {}

// Merger appends to dst the occurrences of phrase obtained by joining the
// prefix and suffix occurrence lists. Both lists hold sorted, flattened
// tuples of prefixSubpatterns and suffixSubpatterns positions respectively.
type Merger interface {
	Merge(dst []int, phrase, suffix phrase.Phrase,
		prefixMatchings, suffixMatchings []int,
		prefixSubpatterns, suffixSubpatterns int) []int
}

// LinearMerger is a two-pointer merge in O(|prefix| + |suffix|) plus the
// rescans of each prefix's MaxRuleSpan window.
type LinearMerger struct {
	vocab      phrase.Vocabulary
	data       SentenceIndex
	comparator *Comparator
	recorder   Recorder
}

// NewLinearMerger returns a LinearMerger. recorder may be nil.
func NewLinearMerger(vocab phrase.Vocabulary, data SentenceIndex, comparator *Comparator, recorder Recorder) *LinearMerger {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &LinearMerger{
		vocab:      vocab,
		data:       data,
		comparator: comparator,
		recorder:   recorder,
	}
}

// Merge implements Merger.
func (m *LinearMerger) Merge(dst []int, phrase, suffix phrase.Phrase,
	prefixMatchings, suffixMatchings []int,
	prefixSubpatterns, suffixSubpatterns int) []int {
	start := time.Now()
	j := newJob(m.vocab, phrase, suffix)
	dst = m.mergeRange(dst, j,
		newMatchings(prefixMatchings, prefixSubpatterns, m.data),
		newMatchings(suffixMatchings, suffixSubpatterns, m.data))
	m.recorder.ObserveMerge("linear", time.Since(start))
	return dst
}

// mergeRange merges every prefix occurrence with the suffix occurrences. The
// shared suffix pointer only moves forward, past occurrences that precede the
// current run of prefixes starting at the same position. Each prefix then
// scans from the pointer until the comparator reports an overshoot; the scan
// never leaves the prefix's MaxRuleSpan window.
func (m *LinearMerger) mergeRange(dst []int, j job, prefix, suffix matchings) []int {
	next := 0
	for i := 0; i < prefix.len(); {
		left := prefix.at(i)
		for next < suffix.len() && m.comparator.Precedes(left, suffix.at(next)) {
			next++
		}

		start := left.First()
		for ; i < prefix.len() && prefix.first(i) == start; i++ {
			left := prefix.at(i)
			for k := next; k < suffix.len(); k++ {
				right := suffix.at(k)
				cmp := m.comparator.Compare(left, right, j.lastChunkLen, j.offset)
				if cmp < 0 {
					break
				}
				if cmp == 0 {
					dst = left.AppendMerge(dst, right, j.numSubpatterns)
				}
			}
		}
	}
	return dst
}

// job holds the per-merge constants derived from the phrases.
type job struct {
	lastChunkLen   int
	offset         bool
	numSubpatterns int
}

func newJob(vocab phrase.Vocabulary, full, suffix phrase.Phrase) job {
	return job{
		lastChunkLen:   suffix.GetChunkLen(suffix.Arity()),
		offset:         !vocab.IsTerminal(suffix.GetSymbol(0)),
		numSubpatterns: full.Arity() + 1,
	}
}

// matchings is a sorted list of occurrences stored as flattened tuples.
type matchings struct {
	positions []int
	n         int
	data      SentenceIndex
}

func newMatchings(positions []int, n int, data SentenceIndex) matchings {
	return matchings{positions: positions, n: n, data: data}
}

func (s matchings) len() int {
	return len(s.positions) / s.n
}

func (s matchings) first(i int) int {
	return s.positions[i*s.n]
}

func (s matchings) at(i int) location.Matching {
	offset := i * s.n
	return location.NewMatching(s.positions, offset, s.n, s.data.GetSentenceID(s.positions[offset]))
}

func (s matchings) slice(i, j int) matchings {
	return matchings{positions: s.positions[i*s.n : j*s.n], n: s.n, data: s.data}
}
