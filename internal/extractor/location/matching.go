package location

// Matching is one occurrence of a phrase: a view of NumSubpatterns
// consecutive entries of a flattened buffer, one start position per
// gap-separated chunk, plus the sentence containing it.
type Matching struct {
	Positions  []int
	SentenceID int
}

// NewMatching views positions[offset:offset+n].
func NewMatching(positions []int, offset, n, sentenceID int) Matching {
	return Matching{
		Positions:  positions[offset : offset+n : offset+n],
		SentenceID: sentenceID,
	}
}

// First returns the position of the first chunk.
func (m Matching) First() int {
	return m.Positions[0]
}

// Last returns the position of the last chunk.
func (m Matching) Last() int {
	return m.Positions[len(m.Positions)-1]
}

func (m Matching) Len() int {
	return len(m.Positions)
}

// Merge combines a prefix occurrence with an adjacent suffix occurrence into
// the occurrence tuple of the full phrase. The suffix contributes its last
// chunk only when the full phrase has more chunks than the prefix.
func (m Matching) Merge(other Matching, numSubpatterns int) []int {
	merged := make([]int, len(m.Positions), numSubpatterns)
	copy(merged, m.Positions)
	if numSubpatterns > len(m.Positions) {
		merged = append(merged, other.Last())
	}
	return merged
}

// AppendMerge is Merge writing into dst.
func (m Matching) AppendMerge(dst []int, other Matching, numSubpatterns int) []int {
	dst = append(dst, m.Positions...)
	if numSubpatterns > len(m.Positions) {
		dst = append(dst, other.Last())
	}
	return dst
}
