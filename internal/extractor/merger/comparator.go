// Package merger joins the sorted occurrence lists of a prefix and a suffix
// pattern into the occurrence list of the pattern they overlap to form.
package merger

import (
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/location"
)

// Comparator decides whether a prefix occurrence and a suffix occurrence can
// be concatenated, and if not, on which side of the required position the
// suffix occurrence lies.
//
// MinGapSize is the smallest number of words a gap may cover. MaxRuleSpan
// bounds the distance from the first word of the prefix occurrence to the
// last word of the suffix occurrence, inclusive.
type Comparator struct {
	MinGapSize  int
	MaxRuleSpan int
}

// NewComparator returns a Comparator enforcing the given gap and span limits.
func NewComparator(minGapSize, maxRuleSpan int) *Comparator {
	return &Comparator{MinGapSize: minGapSize, MaxRuleSpan: maxRuleSpan}
}

// Compare returns a positive value when right lies before the position a
// concatenation with left requires, zero when they merge, and a negative
// value when right lies after it. lastChunkLen is the length of the suffix's
// final terminal chunk; offset is true when the suffix begins with a gap.
//
// Over a suffix list sorted by position, Compare for a fixed left is a run of
// positives, then zeros, then negatives.
func (c *Comparator) Compare(left, right location.Matching, lastChunkLen int, offset bool) int {
	if left.SentenceID != right.SentenceID {
		if left.SentenceID < right.SentenceID {
			return -1
		}
		return 1
	}

	l, r := left.Positions, right.Positions
	switch {
	case len(l) == 1 && len(r) == 1:
		// Only "a X b" shapes reach here: the two chunks are separated by a gap.
		if r[0]-l[0] <= c.MinGapSize {
			return 1
		}
	case offset:
		for i := 1; i < len(l); i++ {
			if l[i] != r[i-1] {
				return order(l[i], r[i-1])
			}
		}
	default:
		if l[0]+1 != r[0] {
			return order(l[0]+1, r[0])
		}
		for i := 1; i < len(l); i++ {
			if l[i] != r[i] {
				return order(l[i], r[i])
			}
		}
	}

	if right.Last()+lastChunkLen-left.First() > c.MaxRuleSpan {
		return -1
	}
	return 0
}

// Precedes reports that right cannot merge with left nor with any prefix
// occurrence sorted after left: every merge needs right to start strictly
// after left in the same sentence.
func (c *Comparator) Precedes(left, right location.Matching) bool {
	if right.SentenceID != left.SentenceID {
		return right.SentenceID < left.SentenceID
	}
	return right.First() <= left.First()
}

// Exceeds reports that right cannot merge with left nor with any prefix
// occurrence sorted before left, because the combined span would be too long.
func (c *Comparator) Exceeds(left, right location.Matching) bool {
	if right.SentenceID != left.SentenceID {
		return right.SentenceID > left.SentenceID
	}
	return right.First()-left.First() >= c.MaxRuleSpan
}

// order returns -1 when the left side position is smaller, so that the suffix
// pointer stops; 1 when it must advance.
func order(want, got int) int {
	if want < got {
		return -1
	}
	return 1
}
