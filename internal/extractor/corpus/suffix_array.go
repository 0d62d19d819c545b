package corpus

import (
	"cmp"
	"slices"
	"sort"
)

// SuffixArray orders every corpus position by the word sequence starting
// there, so all occurrences of a contiguous phrase form one range.
type SuffixArray struct {
	data     *DataArray
	suffixes []int
}

// NewSuffixArray sorts the suffixes of data with a comparison sort.
func NewSuffixArray(data *DataArray) *SuffixArray {
	words := data.words
	suffixes := make([]int, len(words))
	for i := range suffixes {
		suffixes[i] = i
	}
	slices.SortFunc(suffixes, func(a, b int) int {
		if c := slices.Compare(words[a:], words[b:]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return &SuffixArray{data: data, suffixes: suffixes}
}

// GetSize returns the number of suffixes, which is the corpus length.
func (s *SuffixArray) GetSize() int {
	return len(s.suffixes)
}

// GetSuffix returns the corpus position at suffix-array rank i.
func (s *SuffixArray) GetSuffix(i int) int {
	return s.suffixes[i]
}

func (s *SuffixArray) GetData() *DataArray {
	return s.data
}

// Lookup narrows [low, high), a range of suffixes sharing their first offset
// words, to those whose word at offset equals word. An empty result has
// low == high.
func (s *SuffixArray) Lookup(low, high, word, offset int) (int, int) {
	wordAt := func(i int) int {
		pos := s.suffixes[i] + offset
		if pos >= len(s.data.words) {
			return -1
		}
		return s.data.words[pos]
	}
	lo := low + sort.Search(high-low, func(i int) bool {
		return wordAt(low+i) >= word
	})
	hi := lo + sort.Search(high-lo, func(i int) bool {
		return wordAt(lo+i) > word
	})
	return lo, hi
}

// Find returns the suffix-array range of a contiguous terminal phrase.
func (s *SuffixArray) Find(symbols []int) (int, int) {
	low, high := 0, len(s.suffixes)
	for offset, word := range symbols {
		low, high = s.Lookup(low, high, word, offset)
		if low == high {
			break
		}
	}
	return low, high
}
