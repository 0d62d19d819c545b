package merger

import (
	"math"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

// BinarySearchMerger is a Baeza-Yates double binary search merge. It pivots
// on the median of the shorter list, locates the pivot's window in the longer
// one by binary search and recurses on the two remaining quadrants. Small or
// balanced subproblems fall back to the linear merger.
//
// Output is identical to LinearMerger's, including order.
type BinarySearchMerger struct {
	vocab      phrase.Vocabulary
	data       SentenceIndex
	linear     *LinearMerger
	comparator *Comparator
	recorder   Recorder

	// Factor scales the cost estimate of the binary search; higher values
	// prefer the linear merge.
	Factor float64
	// ForceBinarySearch disables the linear fallback.
	ForceBinarySearch bool
}

// NewBinarySearchMerger returns a merger that falls back to linear for
// lists of similar length unless forceBinarySearch is set. recorder may be
// nil.
func NewBinarySearchMerger(vocab phrase.Vocabulary, data SentenceIndex, linear *LinearMerger,
	comparator *Comparator, recorder Recorder, factor float64, forceBinarySearch bool) *BinarySearchMerger {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &BinarySearchMerger{
		vocab:             vocab,
		data:              data,
		linear:            linear,
		comparator:        comparator,
		recorder:          recorder,
		Factor:            factor,
		ForceBinarySearch: forceBinarySearch,
	}
}

// Merge implements Merger.
func (m *BinarySearchMerger) Merge(dst []int, phrase, suffix phrase.Phrase,
	prefixMatchings, suffixMatchings []int,
	prefixSubpatterns, suffixSubpatterns int) []int {
	start := time.Now()
	j := newJob(m.vocab, phrase, suffix)
	dst = m.merge(dst, j,
		newMatchings(prefixMatchings, prefixSubpatterns, m.data),
		newMatchings(suffixMatchings, suffixSubpatterns, m.data))
	m.recorder.ObserveMerge("binary_search", time.Since(start))
	return dst
}

func (m *BinarySearchMerger) merge(dst []int, j job, prefix, suffix matchings) []int {
	if prefix.len() == 0 || suffix.len() == 0 || m.isIntersectionVoid(prefix, suffix) {
		return dst
	}
	if !m.ForceBinarySearch && m.ShouldUseLinearMerge(prefix.len(), suffix.len()) {
		return m.linear.mergeRange(dst, j, prefix, suffix)
	}
	if prefix.len() <= suffix.len() {
		return m.pivotOnPrefix(dst, j, prefix, suffix)
	}
	return m.pivotOnSuffix(dst, j, prefix, suffix)
}

// pivotOnPrefix merges the median prefix occurrence with the suffix window it
// can reach. Prefixes before the pivot cannot reach past that window; those
// after it cannot reach before it.
func (m *BinarySearchMerger) pivotOnPrefix(dst []int, j job, prefix, suffix matchings) []int {
	mid := prefix.len() / 2
	pivot := prefix.at(mid)
	lo := sort.Search(suffix.len(), func(k int) bool { return !m.comparator.Precedes(pivot, suffix.at(k)) })
	hi := sort.Search(suffix.len(), func(k int) bool { return m.comparator.Exceeds(pivot, suffix.at(k)) })

	dst = m.merge(dst, j, prefix.slice(0, mid), suffix.slice(0, hi))
	dst = m.linear.mergeRange(dst, j, prefix.slice(mid, mid+1), suffix.slice(lo, hi))
	return m.merge(dst, j, prefix.slice(mid+1, prefix.len()), suffix.slice(lo, suffix.len()))
}

// pivotOnSuffix splits the prefixes around the median suffix occurrence:
// those it lies too far after, those it may merge with, and those it lies
// before. The middle group is merged linearly against its joint window.
func (m *BinarySearchMerger) pivotOnSuffix(dst []int, j job, prefix, suffix matchings) []int {
	mid := suffix.len() / 2
	pivot := suffix.at(mid)
	pa := sort.Search(prefix.len(), func(i int) bool { return !m.comparator.Exceeds(prefix.at(i), pivot) })
	pb := sort.Search(prefix.len(), func(i int) bool { return m.comparator.Precedes(prefix.at(i), pivot) })

	dst = m.merge(dst, j, prefix.slice(0, pa), suffix.slice(0, mid))
	if pa < pb {
		first, last := prefix.at(pa), prefix.at(pb-1)
		lo := sort.Search(suffix.len(), func(k int) bool { return !m.comparator.Precedes(first, suffix.at(k)) })
		hi := sort.Search(suffix.len(), func(k int) bool { return m.comparator.Exceeds(last, suffix.at(k)) })
		dst = m.linear.mergeRange(dst, j, prefix.slice(pa, pb), suffix.slice(lo, hi))
	}
	return m.merge(dst, j, prefix.slice(pb, prefix.len()), suffix.slice(mid+1, suffix.len()))
}

// isIntersectionVoid reports that no pair can merge: every suffix occurrence
// lies too far after the last prefix, or at or before the first one.
func (m *BinarySearchMerger) isIntersectionVoid(prefix, suffix matchings) bool {
	return m.comparator.Exceeds(prefix.at(prefix.len()-1), suffix.at(0)) ||
		m.comparator.Precedes(prefix.at(0), suffix.at(suffix.len()-1))
}

// ShouldUseLinearMerge compares the estimated cost of the binary search,
// Factor * min * log2(max), with the linear cost max.
func (m *BinarySearchMerger) ShouldUseLinearMerge(prefixLen, suffixLen int) bool {
	lo, hi := min(prefixLen, suffixLen), max(prefixLen, suffixLen)
	return m.Factor*float64(lo)*math.Log2(float64(hi)) > float64(hi)
}
