// Package location describes where a phrase occurs in the corpus: either as a
// suffix-array range or as a materialized list of occurrence tuples.
package location

// Buffer is a flattened, read-only list of corpus positions. Every
// PhraseLocation that refers to the same occurrences holds the same *Buffer,
// so reusing a sub-pattern's location never copies its positions.
type Buffer struct {
	positions []int
}

// NewBuffer takes ownership of positions. A nil slice is stored as an empty
// one so that an empty result still counts as materialized.
func NewBuffer(positions []int) *Buffer {
	if positions == nil {
		positions = []int{}
	}
	return &Buffer{positions: positions}
}

// Positions returns the underlying slice. Callers must not modify it.
func (b *Buffer) Positions() []int {
	return b.positions
}

// Len returns the number of stored positions.
func (b *Buffer) Len() int {
	return len(b.positions)
}

// PhraseLocation is the occurrence set of one phrase.
//
// In range form Matchings is nil, [SALow, SAHigh) is a suffix-array range and
// NumSubpatterns is 1. In materialized form Matchings holds NumSubpatterns
// consecutive positions per occurrence and the range fields are ignored. A
// location is never converted back once materialized.
type PhraseLocation struct {
	SALow          int
	SAHigh         int
	Matchings      *Buffer
	NumSubpatterns int
}

// NewRange returns a location in suffix-array range form.
func NewRange(low, high int) PhraseLocation {
	return PhraseLocation{SALow: low, SAHigh: high, NumSubpatterns: 1}
}

// NewMatchings returns a materialized location owning positions.
func NewMatchings(positions []int, numSubpatterns int) PhraseLocation {
	return PhraseLocation{Matchings: NewBuffer(positions), NumSubpatterns: numSubpatterns}
}

// Shared returns a materialized location borrowing buf.
func Shared(buf *Buffer, numSubpatterns int) PhraseLocation {
	return PhraseLocation{Matchings: buf, NumSubpatterns: numSubpatterns}
}

// Materialized reports whether l holds explicit positions rather than a
// suffix-array range.
func (l PhraseLocation) Materialized() bool {
	return l.Matchings != nil
}

// Size returns the number of occurrences.
func (l PhraseLocation) Size() int {
	if l.Matchings != nil {
		if l.NumSubpatterns < 1 {
			return 0
		}
		return l.Matchings.Len() / l.NumSubpatterns
	}
	return l.SAHigh - l.SALow
}

// Empty reports whether l has no occurrences.
func (l PhraseLocation) Empty() bool {
	return l.Size() == 0
}

// Positions returns the flattened occurrence tuples, or nil in range form.
func (l PhraseLocation) Positions() []int {
	if l.Matchings == nil {
		return nil
	}
	return l.Matchings.positions
}

// Equal compares two locations. Materialized locations are equal when their
// tuples match; range locations when their ranges match.
func (l PhraseLocation) Equal(other PhraseLocation) bool {
	if l.Materialized() != other.Materialized() {
		return false
	}
	if !l.Materialized() {
		return l.SALow == other.SALow && l.SAHigh == other.SAHigh
	}
	if l.NumSubpatterns != other.NumSubpatterns || l.Matchings.Len() != other.Matchings.Len() {
		return false
	}
	for i, p := range l.Matchings.positions {
		if other.Matchings.positions[i] != p {
			return false
		}
	}
	return true
}
