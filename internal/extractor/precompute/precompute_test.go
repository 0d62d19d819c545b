package precompute

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

var testLines = []string{
	"the cat sat on the mat",
	"the dog sat on the cat",
	"a cat and the dog",
	"the mat sat",
}

func buildTest(t *testing.T, opts BuildOptions) (*Precomputation, *phrase.MemoryVocabulary, *corpus.DataArray) {
	t.Helper()
	vocab := phrase.NewMemoryVocabulary()
	data := corpus.FromLines(testLines, vocab)
	return Build(corpus.NewSuffixArray(data), opts), vocab, data
}

func defaultOpts() BuildOptions {
	return BuildOptions{
		MinFrequency:    2,
		MaxPhraseLen:    2,
		MaxPhrases:      10,
		MinGapSize:      1,
		MaxRuleSpan:     6,
		MaxNonterminals: 2,
	}
}

func TestBuildIndexesFrequentPhrases(t *testing.T) {
	p, vocab, data := buildTest(t, defaultOpts())
	the := vocab.GetTerminalIndex("the")
	sat := vocab.GetTerminalIndex("sat")
	on := vocab.GetTerminalIndex("on")
	and := vocab.GetTerminalIndex("and")

	buf, ok := p.GetContiguousMatches([]int{the})
	if !ok {
		t.Fatal("frequent word 'the' missing from inverted index")
	}
	var want []int
	for pos, w := range data.GetData() {
		if w == the {
			want = append(want, pos)
		}
	}
	if !slices.Equal(buf.Positions(), want) {
		t.Errorf("positions of 'the' = %v, want %v", buf.Positions(), want)
	}

	for _, pattern := range [][]int{{Generic, the}, {the, Generic}, {-2, the}, {sat, on}} {
		if !p.Contains(pattern) {
			t.Errorf("Contains(%v) = false", pattern)
		}
	}
	if p.Contains([]int{and}) {
		t.Error("word seen once was indexed")
	}
}

func TestBuildCollocationsAreSortedAndBounded(t *testing.T) {
	opts := defaultOpts()
	p, vocab, data := buildTest(t, opts)
	the := vocab.GetTerminalIndex("the")
	sat := vocab.GetTerminalIndex("sat")

	if !p.ContainsCollocation([]int{the, -1, the}) {
		t.Fatal("collocation 'the X the' missing")
	}
	if _, ok := p.GetCollocationMatches([]int{the, -7, the}); !ok {
		t.Error("gap numbering affected the lookup")
	}

	buf, _ := p.GetCollocationMatches([]int{the, Generic, sat})
	positions := buf.Positions()
	if len(positions) == 0 || len(positions)%2 != 0 {
		t.Fatalf("'the X sat' tuples = %v", positions)
	}
	for i := 0; i < len(positions); i += 2 {
		first, second := positions[i], positions[i+1]
		if data.GetSentenceID(first) != data.GetSentenceID(second) {
			t.Errorf("tuple (%d, %d) crosses sentences", first, second)
		}
		if second-first-1 < opts.MinGapSize || second+1-first > opts.MaxRuleSpan {
			t.Errorf("tuple (%d, %d) violates gap or span limits", first, second)
		}
		if i > 0 && slices.Compare(positions[i-2:i], positions[i:i+2]) >= 0 {
			t.Errorf("tuples not sorted at %d: %v", i, positions)
		}
	}
}

func TestBuildWithoutNonterminalsSkipsCollocations(t *testing.T) {
	opts := defaultOpts()
	opts.MaxNonterminals = 0
	p, _, _ := buildTest(t, opts)
	if _, colloc := p.Size(); colloc != 0 {
		t.Errorf("collocations = %d, want 0", colloc)
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	p, _, data := buildTest(t, defaultOpts())
	path := filepath.Join(t.TempDir(), "segments", "pre.hpxc")
	if err := WriteFile(path, p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path, Fingerprint(data, defaultOpts()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	assertSamePrecomputation(t, got, p)
	if got.Provenance() != p.Provenance() {
		t.Errorf("Provenance() = %+v, want %+v", got.Provenance(), p.Provenance())
	}
}

func TestReadFileRejectsStaleSegments(t *testing.T) {
	p, _, data := buildTest(t, defaultOpts())
	path := filepath.Join(t.TempDir(), "pre.hpxc")
	if err := WriteFile(path, p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	narrower := defaultOpts()
	narrower.MaxRuleSpan = 4
	fewerGaps := defaultOpts()
	fewerGaps.MaxNonterminals = 1
	otherVocab := phrase.NewMemoryVocabulary()
	otherVocab.GetTerminalIndex("mat")
	reordered := corpus.FromLines(testLines, otherVocab)
	edited := corpus.FromLines(append(slices.Clone(testLines), "the cat"), phrase.NewMemoryVocabulary())

	tests := map[string]Provenance{
		"narrower span":   Fingerprint(data, narrower),
		"fewer gaps":      Fingerprint(data, fewerGaps),
		"other word ids":  Fingerprint(reordered, defaultOpts()),
		"extra sentence":  Fingerprint(edited, defaultOpts()),
		"zero provenance": {},
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadFile(path, want)
			if !apperrors.Is(err, apperrors.ErrStalePrecomputation) {
				t.Fatalf("ReadFile() error = %v, want ErrStalePrecomputation", err)
			}
			if !apperrors.IsFatal(err) {
				t.Error("stale precomputation is not fatal")
			}
		})
	}
}

func TestCollocationsDependOnSpan(t *testing.T) {
	wide := defaultOpts()
	narrow := defaultOpts()
	narrow.MaxRuleSpan = 3
	pw, _, _ := buildTest(t, wide)
	pn, _, _ := buildTest(t, narrow)

	// The same pattern keeps more tuples under the wider span, so a cached
	// segment must never be used with a different span.
	var differs bool
	for k, e := range pw.collocations {
		n, ok := pn.collocations[k]
		if !ok || n.matches.Len() != e.matches.Len() {
			differs = true
			break
		}
	}
	if !differs {
		t.Fatal("collocations identical under spans 6 and 3")
	}
	if err := pw.Check(pn.Provenance()); !apperrors.Is(err, apperrors.ErrStalePrecomputation) {
		t.Errorf("Check() error = %v, want ErrStalePrecomputation", err)
	}
	if err := pw.Check(pw.Provenance()); err != nil {
		t.Errorf("Check() against its own provenance: %v", err)
	}
}

func TestDecodeRejectsCorruptSegments(t *testing.T) {
	p, _, _ := buildTest(t, defaultOpts())
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := map[string][]byte{
		"truncated": data[:HeaderSize],
		"bad magic": append([]byte{0, 0, 0, 0}, data[4:]...),
	}
	flipped := slices.Clone(data)
	flipped[HeaderSize] ^= 0xff
	tests["flipped posting byte"] = flipped
	dictByte := slices.Clone(data)
	dictByte[len(dictByte)-FooterSize-2] ^= 0x01
	tests["flipped dictionary byte"] = dictByte

	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(corrupt); !apperrors.Is(err, apperrors.ErrCorruptSegment) {
				t.Errorf("Decode() error = %v, want ErrCorruptSegment", err)
			}
		})
	}
}

func TestDecodeEmptyPrecomputation(t *testing.T) {
	data, err := Encode(New())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c, g := p.Size(); c != 0 || g != 0 {
		t.Errorf("Size() = %d, %d, want 0, 0", c, g)
	}
}

type memoryClient struct {
	data map[string][]byte
	gets int
	sets int
}

func newMemoryClient() *memoryClient {
	return &memoryClient{data: make(map[string][]byte)}
}

func (c *memoryClient) GetBytes(_ context.Context, key string) ([]byte, error) {
	c.gets++
	v, ok := c.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (c *memoryClient) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.sets++
	c.data[key] = slices.Clone(value.([]byte))
	return nil
}

func (c *memoryClient) FlushByPattern(context.Context, string) (int64, error) {
	n := int64(len(c.data))
	clear(c.data)
	return n, nil
}

func TestStoreLoadOrBuild(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient()
	store := NewStore(client, time.Hour)
	want, _, data := buildTest(t, defaultOpts())
	fingerprint := Fingerprint(data, defaultOpts())

	if _, err := store.Load(ctx, "corpus"); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("Load() on empty store error = %v, want ErrNotFound", err)
	}

	builds := 0
	build := func() (*Precomputation, error) {
		builds++
		return want, nil
	}
	got, cached, err := store.LoadOrBuild(ctx, "corpus", fingerprint, build)
	if err != nil || cached {
		t.Fatalf("first LoadOrBuild() = cached %v, err %v", cached, err)
	}
	if got != want {
		t.Error("first LoadOrBuild() did not return the built precomputation")
	}

	got, cached, err = store.LoadOrBuild(ctx, "corpus", fingerprint, build)
	if err != nil || !cached {
		t.Fatalf("second LoadOrBuild() = cached %v, err %v", cached, err)
	}
	if builds != 1 {
		t.Errorf("build ran %d times, want 1", builds)
	}
	assertSamePrecomputation(t, got, want)

	if n, err := store.Purge(ctx); err != nil || n != 1 {
		t.Errorf("Purge() = %d, %v, want 1, nil", n, err)
	}
}

func TestStoreReplacesStaleSegments(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient()
	store := NewStore(client, time.Hour)

	wide := defaultOpts()
	wide.MaxRuleSpan = 8
	stale, _, data := buildTest(t, wide)
	if err := store.Save(ctx, "corpus", stale); err != nil {
		t.Fatal(err)
	}

	fresh, _, _ := buildTest(t, defaultOpts())
	builds := 0
	build := func() (*Precomputation, error) {
		builds++
		return fresh, nil
	}
	got, cached, err := store.LoadOrBuild(ctx, "corpus", Fingerprint(data, defaultOpts()), build)
	if err != nil || cached {
		t.Fatalf("LoadOrBuild() = cached %v, err %v", cached, err)
	}
	if got != fresh || builds != 1 {
		t.Errorf("stale segment was not rebuilt (builds = %d)", builds)
	}

	reloaded, err := store.Load(ctx, "corpus")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Provenance() != fresh.Provenance() {
		t.Errorf("stored provenance = %+v, want %+v", reloaded.Provenance(), fresh.Provenance())
	}
}

func TestStoreCompressesSegments(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient()
	store := NewStore(client, time.Hour)
	p, _, _ := buildTest(t, defaultOpts())
	if err := store.Save(ctx, "corpus", p); err != nil {
		t.Fatal(err)
	}

	raw, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	stored := client.data[keyPrefix+"corpus"]
	if !bytes.HasPrefix(stored, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Errorf("stored value does not start with a zstd frame: % x", stored[:min(4, len(stored))])
	}
	if len(stored) >= len(raw) {
		t.Errorf("stored %d bytes for a %d byte segment", len(stored), len(raw))
	}

	client.data[keyPrefix+"corpus"] = raw
	if _, err := store.Load(ctx, "corpus"); !apperrors.Is(err, apperrors.ErrCorruptSegment) {
		t.Errorf("Load() of an uncompressed value error = %v, want ErrCorruptSegment", err)
	}
}

func assertSamePrecomputation(t *testing.T, got, want *Precomputation) {
	t.Helper()
	gc, gg := got.Size()
	wc, wg := want.Size()
	if gc != wc || gg != wg {
		t.Fatalf("Size() = %d, %d, want %d, %d", gc, gg, wc, wg)
	}
	for k, e := range want.invertedIndex {
		if !slices.Equal(got.invertedIndex[k].matches.Positions(), e.matches.Positions()) {
			t.Errorf("inverted index entry %v differs", e.pattern)
		}
	}
	for k, e := range want.collocations {
		if !slices.Equal(got.collocations[k].matches.Positions(), e.matches.Positions()) {
			t.Errorf("collocation %v differs", e.pattern)
		}
	}
}
