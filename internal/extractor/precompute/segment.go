package precompute

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
)

// A segment stores a Precomputation as a 64-byte header, the varint-encoded
// position lists, a JSON dictionary and a 32-byte footer. The dictionary
// carries the Provenance alongside the entries.
const (
	MagicBytes    uint32 = 0x48505843
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

const (
	kindContiguous  = "c"
	kindCollocation = "g"
)

// SegmentHeader is the header written at the start of every segment.
type SegmentHeader struct {
	Magic            uint32
	Version          uint32
	ContiguousCount  uint32
	CollocationCount uint32
	CreatedAt        int64
	DictOffset       int64
	DictSize         int64
	PostOffset       int64
	PostSize         int64
}

// DictEntry locates one pattern's positions in the segment.
type DictEntry struct {
	Kind     string `json:"k"`
	Pattern  []int  `json:"p"`
	Offset   int64  `json:"o"`
	Len      int    `json:"l"`
	Elements int    `json:"n"`
}

type dictionary struct {
	Provenance Provenance  `json:"provenance"`
	Entries    []DictEntry `json:"entries"`
}

// Encode serialises p into segment bytes.
func Encode(p *Precomputation) ([]byte, error) {
	var postings bytes.Buffer
	dict := make([]DictEntry, 0, len(p.invertedIndex)+len(p.collocations))
	var scratch []byte
	appendEntries := func(kind string, m map[string]entry) {
		for _, e := range sortedEntries(m) {
			scratch = scratch[:0]
			for _, pos := range e.matches.Positions() {
				scratch = binary.AppendUvarint(scratch, uint64(pos))
			}
			dict = append(dict, DictEntry{
				Kind:     kind,
				Pattern:  e.pattern,
				Offset:   int64(postings.Len()),
				Len:      len(scratch),
				Elements: e.matches.Len(),
			})
			postings.Write(scratch)
		}
	}
	appendEntries(kindContiguous, p.invertedIndex)
	appendEntries(kindCollocation, p.collocations)

	dictData, err := json.Marshal(dictionary{Provenance: p.provenance, Entries: dict})
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}

	postStart := int64(HeaderSize)
	postSize := int64(postings.Len())
	dictStart := postStart + postSize
	dictSize := int64(len(dictData))

	out := make([]byte, HeaderSize, HeaderSize+int(postSize)+int(dictSize)+FooterSize)
	binary.LittleEndian.PutUint32(out[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(out[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(p.invertedIndex)))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(p.collocations)))
	binary.LittleEndian.PutUint64(out[16:24], uint64(time.Now().Unix()))
	binary.LittleEndian.PutUint64(out[24:32], uint64(dictStart))
	binary.LittleEndian.PutUint64(out[32:40], uint64(dictSize))
	binary.LittleEndian.PutUint64(out[40:48], uint64(postStart))
	binary.LittleEndian.PutUint64(out[48:56], uint64(postSize))
	out = append(out, postings.Bytes()...)
	out = append(out, dictData...)

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], crc32.ChecksumIEEE(postings.Bytes()))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(dictStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(dictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(postSize))
	return append(out, footer...), nil
}

// Decode parses segment bytes produced by Encode. Any structural problem is
// reported as ErrCorruptSegment.
func Decode(data []byte) (*Precomputation, error) {
	header, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != header.DictOffset+header.DictSize+int64(FooterSize) ||
		header.PostOffset+header.PostSize != header.DictOffset {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "size %d does not match header", len(data))
	}

	dictData := data[header.DictOffset : header.DictOffset+header.DictSize]
	postings := data[header.PostOffset : header.PostOffset+header.PostSize]
	footer := data[len(data)-FooterSize:]
	if crc32.ChecksumIEEE(dictData) != binary.LittleEndian.Uint32(footer[0:4]) {
		return nil, apperrors.New(apperrors.ErrCorruptSegment, "dictionary checksum mismatch")
	}
	if crc32.ChecksumIEEE(postings) != binary.LittleEndian.Uint32(footer[4:8]) {
		return nil, apperrors.New(apperrors.ErrCorruptSegment, "postings checksum mismatch")
	}

	var dict dictionary
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "parsing dictionary: %v", err)
	}

	p := New()
	p.provenance = dict.Provenance
	for _, d := range dict.Entries {
		if d.Offset < 0 || d.Offset+int64(d.Len) > int64(len(postings)) {
			return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "entry %v out of bounds", d.Pattern)
		}
		positions, err := decodePositions(postings[d.Offset:d.Offset+int64(d.Len)], d.Elements)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "entry %v: %v", d.Pattern, err)
		}
		switch d.Kind {
		case kindContiguous:
			p.AddContiguous(d.Pattern, positions)
		case kindCollocation:
			p.AddCollocation(d.Pattern, positions)
		default:
			return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "unknown entry kind %q", d.Kind)
		}
	}
	if int(header.ContiguousCount) != len(p.invertedIndex) || int(header.CollocationCount) != len(p.collocations) {
		return nil, apperrors.New(apperrors.ErrCorruptSegment, "entry counts do not match header")
	}
	return p, nil
}

func readHeader(data []byte) (SegmentHeader, error) {
	if len(data) < HeaderSize+FooterSize {
		return SegmentHeader{}, apperrors.Newf(apperrors.ErrCorruptSegment, "segment too short: %d bytes", len(data))
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicBytes {
		return SegmentHeader{}, apperrors.Newf(apperrors.ErrCorruptSegment, "bad magic bytes %x", magic)
	}
	header := SegmentHeader{
		Magic:            magic,
		Version:          binary.LittleEndian.Uint32(data[4:8]),
		ContiguousCount:  binary.LittleEndian.Uint32(data[8:12]),
		CollocationCount: binary.LittleEndian.Uint32(data[12:16]),
		CreatedAt:        int64(binary.LittleEndian.Uint64(data[16:24])),
		DictOffset:       int64(binary.LittleEndian.Uint64(data[24:32])),
		DictSize:         int64(binary.LittleEndian.Uint64(data[32:40])),
		PostOffset:       int64(binary.LittleEndian.Uint64(data[40:48])),
		PostSize:         int64(binary.LittleEndian.Uint64(data[48:56])),
	}
	if header.Version != FormatVersion {
		return SegmentHeader{}, apperrors.Newf(apperrors.ErrCorruptSegment, "unsupported version %d", header.Version)
	}
	if header.DictOffset < 0 || header.DictSize < 0 || header.PostOffset < int64(HeaderSize) || header.PostSize < 0 {
		return SegmentHeader{}, apperrors.New(apperrors.ErrCorruptSegment, "negative section bounds")
	}
	return header, nil
}

func decodePositions(data []byte, n int) ([]int, error) {
	positions := make([]int, 0, n)
	for len(data) > 0 {
		v, size := binary.Uvarint(data)
		if size <= 0 {
			return nil, fmt.Errorf("bad varint")
		}
		positions = append(positions, int(v))
		data = data[size:]
	}
	if len(positions) != n {
		return nil, fmt.Errorf("decoded %d positions, want %d", len(positions), n)
	}
	return positions, nil
}

// WriteFile atomically writes p to path. It writes to a .tmp file first and
// renames on success.
func WriteFile(path string, p *Precomputation) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming segment file: %w", err)
	}
	return nil
}

// ReadFile loads a segment written by WriteFile and checks it against want.
// A segment built from another corpus or with other options is rejected with
// ErrStalePrecomputation.
func ReadFile(path string, want Provenance) (*Precomputation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("reading segment %s: %w", path, err)
	}
	if err := p.Check(want); err != nil {
		return nil, fmt.Errorf("reading segment %s: %w", path, err)
	}
	return p, nil
}
