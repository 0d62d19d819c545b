// Package precompute holds the occurrence cache built offline from corpus
// frequency statistics: an inverted index of frequent contiguous phrases and
// the full occurrence tuples of frequent gapped collocations.
package precompute

import (
	"encoding/binary"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/location"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
)

// Generic is the marker every non-terminal is normalised to in keys, so a
// pattern is found regardless of how its gaps are numbered.
const Generic = -1

type entry struct {
	pattern []int
	matches *location.Buffer
}

// Provenance identifies the corpus and options a Precomputation was built
// with. Cached collocations are only valid against the same word IDs and the
// same gap and span limits.
type Provenance struct {
	Options        BuildOptions `json:"options"`
	CorpusSize     int          `json:"corpus_size"`
	CorpusChecksum uint32       `json:"corpus_crc"`
}

// Precomputation is read-only once built and safe for concurrent readers.
type Precomputation struct {
	provenance    Provenance
	invertedIndex map[string]entry
	collocations  map[string]entry
}

// New returns an empty Precomputation with a zero Provenance.
func New() *Precomputation {
	return &Precomputation{
		invertedIndex: make(map[string]entry),
		collocations:  make(map[string]entry),
	}
}

// Normalize returns a copy of pattern with every non-terminal replaced by
// Generic.
func Normalize(pattern []int) []int {
	out := slices.Clone(pattern)
	for i, s := range out {
		if s < 0 {
			out[i] = Generic
		}
	}
	return out
}

func key(pattern []int) string {
	buf := make([]byte, 0, len(pattern)*2)
	for _, s := range pattern {
		if s < 0 {
			s = Generic
		}
		buf = binary.AppendVarint(buf, int64(s))
	}
	return string(buf)
}

// AddContiguous stores the sorted positions of a contiguous phrase, which may
// carry one leading or trailing gap.
func (p *Precomputation) AddContiguous(pattern, positions []int) {
	p.invertedIndex[key(pattern)] = entry{pattern: Normalize(pattern), matches: location.NewBuffer(positions)}
}

// AddCollocation stores the lexicographically sorted, flattened occurrence
// tuples of a gapped pattern.
func (p *Precomputation) AddCollocation(pattern, tuples []int) {
	p.collocations[key(pattern)] = entry{pattern: Normalize(pattern), matches: location.NewBuffer(tuples)}
}

// Provenance returns what p was built from.
func (p *Precomputation) Provenance() Provenance {
	return p.provenance
}

// Check returns ErrStalePrecomputation unless p was built from the corpus and
// options described by want.
func (p *Precomputation) Check(want Provenance) error {
	got := p.provenance
	switch {
	case got.CorpusSize != want.CorpusSize || got.CorpusChecksum != want.CorpusChecksum:
		return apperrors.Newf(apperrors.ErrStalePrecomputation,
			"built from a corpus of %d words (crc %08x), current corpus has %d words (crc %08x)",
			got.CorpusSize, got.CorpusChecksum, want.CorpusSize, want.CorpusChecksum)
	case got.Options != want.Options:
		return apperrors.Newf(apperrors.ErrStalePrecomputation,
			"built with %+v, current options are %+v", got.Options, want.Options)
	}
	return nil
}

// Contains reports whether pattern has an inverted-index entry.
func (p *Precomputation) Contains(pattern []int) bool {
	_, ok := p.invertedIndex[key(pattern)]
	return ok
}

// GetContiguousMatches returns the sorted positions of a cached contiguous
// phrase.
func (p *Precomputation) GetContiguousMatches(pattern []int) (*location.Buffer, bool) {
	e, ok := p.invertedIndex[key(pattern)]
	return e.matches, ok
}

// ContainsCollocation reports whether pattern is a cached collocation.
func (p *Precomputation) ContainsCollocation(pattern []int) bool {
	_, ok := p.collocations[key(pattern)]
	return ok
}

// GetCollocationMatches returns the flattened occurrence tuples of a cached
// collocation.
func (p *Precomputation) GetCollocationMatches(pattern []int) (*location.Buffer, bool) {
	e, ok := p.collocations[key(pattern)]
	return e.matches, ok
}

// Size returns the number of inverted-index and collocation entries.
func (p *Precomputation) Size() (contiguous, collocations int) {
	return len(p.invertedIndex), len(p.collocations)
}

// sortedEntries returns the entries of m ordered by pattern.
func sortedEntries(m map[string]entry) []entry {
	out := make([]entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b entry) int {
		return slices.Compare(a.pattern, b.pattern)
	})
	return out
}
