package precompute

import (
	"cmp"
	"encoding/binary"
	"hash/crc32"
	"log/slog"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

// BuildOptions selects which phrases are frequent enough to cache. The gap
// and span limits must match the ones the intersector's comparator uses, or
// cached collocations would disagree with merged results.
type BuildOptions struct {
	MinFrequency    int `json:"min_frequency"`
	MaxPhraseLen    int `json:"max_phrase_len"`
	MaxPhrases      int `json:"max_phrases"`
	MinGapSize      int `json:"min_gap_size"`
	MaxRuleSpan     int `json:"max_rule_span"`
	MaxNonterminals int `json:"max_nonterminals"`
}

// Fingerprint describes a build of data with opts. The checksum covers the
// word IDs, end-of-line markers included, so a corpus read with a different
// vocabulary or sentence split does not match.
func Fingerprint(data *corpus.DataArray, opts BuildOptions) Provenance {
	crc := crc32.NewIEEE()
	var buf []byte
	for _, w := range data.GetData() {
		buf = binary.AppendVarint(buf[:0], int64(w))
		crc.Write(buf)
	}
	return Provenance{
		Options:        opts,
		CorpusSize:     data.GetSize(),
		CorpusChecksum: crc.Sum32(),
	}
}

type frequentPhrase struct {
	pattern   []int
	positions []int
}

// Build scans the suffix array for the MaxPhrases most frequent contiguous
// phrases and indexes them, then enumerates every collocation of up to
// MaxNonterminals+1 frequent phrases within MaxRuleSpan.
func Build(sa *corpus.SuffixArray, opts BuildOptions) *Precomputation {
	logger := slog.Default().With("component", "precompute")
	start := time.Now()

	phrases := frequentPhrases(sa, opts)
	p := New()
	p.provenance = Fingerprint(sa.GetData(), opts)
	for _, f := range phrases {
		p.AddContiguous(f.pattern, f.positions)
		p.AddContiguous(withLeadingGap(f.pattern), f.positions)
		p.AddContiguous(withTrailingGap(f.pattern), f.positions)
	}
	if opts.MaxNonterminals > 0 {
		for _, c := range collocations(sa.GetData(), phrases, opts) {
			p.AddCollocation(c.pattern, c.positions)
		}
	}

	contiguous, colloc := p.Size()
	logger.Info("precomputation built",
		"frequent_phrases", len(phrases),
		"inverted_index_entries", contiguous,
		"collocations", colloc,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p
}

// frequentPhrases groups suffix-array ranks sharing their first n words, for
// every n up to MaxPhraseLen, and keeps the groups of at least MinFrequency
// suffixes that stay inside one sentence.
func frequentPhrases(sa *corpus.SuffixArray, opts BuildOptions) []frequentPhrase {
	words := sa.GetData().GetData()
	var out []frequentPhrase
	for n := 1; n <= opts.MaxPhraseLen; n++ {
		for lo := 0; lo < sa.GetSize(); {
			pos := sa.GetSuffix(lo)
			if !insideSentence(words, pos, n) {
				lo++
				continue
			}
			pattern := words[pos : pos+n]
			hi := lo + 1
			for hi < sa.GetSize() && hasPrefix(words, sa.GetSuffix(hi), pattern) {
				hi++
			}
			if hi-lo >= opts.MinFrequency {
				positions := make([]int, 0, hi-lo)
				for i := lo; i < hi; i++ {
					positions = append(positions, sa.GetSuffix(i))
				}
				slices.Sort(positions)
				out = append(out, frequentPhrase{pattern: slices.Clone(pattern), positions: positions})
			}
			lo = hi
		}
	}

	slices.SortStableFunc(out, func(a, b frequentPhrase) int {
		if c := cmp.Compare(len(b.positions), len(a.positions)); c != 0 {
			return c
		}
		return slices.Compare(a.pattern, b.pattern)
	})
	if opts.MaxPhrases > 0 && len(out) > opts.MaxPhrases {
		out = out[:opts.MaxPhrases]
	}
	return out
}

func insideSentence(words []int, pos, n int) bool {
	if pos+n > len(words) {
		return false
	}
	for _, w := range words[pos : pos+n] {
		if w == phrase.EndOfLineID {
			return false
		}
	}
	return true
}

func hasPrefix(words []int, pos int, pattern []int) bool {
	if pos+len(pattern) > len(words) {
		return false
	}
	return slices.Equal(words[pos:pos+len(pattern)], pattern)
}

// collocations enumerates, sentence by sentence and in increasing position
// order, every pair and triple of frequent phrase occurrences separated by at
// least MinGapSize words and spanning at most MaxRuleSpan words. Emitting in
// position order keeps each pattern's tuples lexicographically sorted.
func collocations(data *corpus.DataArray, phrases []frequentPhrase, opts BuildOptions) []frequentPhrase {
	startsAt := make(map[int][]int)
	for idx, f := range phrases {
		for _, pos := range f.positions {
			startsAt[pos] = append(startsAt[pos], idx)
		}
	}

	index := make(map[string]int)
	var out []frequentPhrase
	add := func(parts []int, tuple ...int) {
		pattern := phrases[parts[0]].pattern
		for _, idx := range parts[1:] {
			pattern = append(withTrailingGap(pattern), phrases[idx].pattern...)
		}
		k := key(pattern)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, frequentPhrase{pattern: pattern})
		}
		out[i].positions = append(out[i].positions, tuple...)
	}

	for sid := 0; sid < data.GetNumSentences(); sid++ {
		begin := data.GetSentenceStart(sid)
		end := begin + data.GetSentenceLen(sid)
		for i := begin; i < end; i++ {
			for _, a := range startsAt[i] {
				la := len(phrases[a].pattern)
				for j := i + la + opts.MinGapSize; j < end && j-i < opts.MaxRuleSpan; j++ {
					for _, b := range startsAt[j] {
						lb := len(phrases[b].pattern)
						if j+lb-i > opts.MaxRuleSpan {
							continue
						}
						add([]int{a, b}, i, j)
						if opts.MaxNonterminals < 2 {
							continue
						}
						for k := j + lb + opts.MinGapSize; k < end && k-i < opts.MaxRuleSpan; k++ {
							for _, c := range startsAt[k] {
								if k+len(phrases[c].pattern)-i > opts.MaxRuleSpan {
									continue
								}
								add([]int{a, b, c}, i, j, k)
							}
						}
					}
				}
			}
		}
	}
	return out
}

func withLeadingGap(pattern []int) []int {
	return append([]int{Generic}, pattern...)
}

func withTrailingGap(pattern []int) []int {
	out := make([]int, 0, len(pattern)+1)
	out = append(out, pattern...)
	return append(out, Generic)
}
