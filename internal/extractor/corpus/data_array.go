// Package corpus holds the read-only source side of the training corpus: the
// DataArray of word IDs and the SuffixArray over it. Both are built once and
// shared by every extraction worker without locking.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

// DataArray stores the corpus as one flat sequence of word IDs with an
// end-of-line marker closing every sentence.
type DataArray struct {
	words          []int
	sentenceIDs    []int
	sentenceStarts []int
}

// FromLines builds a DataArray with one sentence per line.
func FromLines(lines []string, vocab phrase.Vocabulary) *DataArray {
	d := &DataArray{}
	for i, line := range lines {
		d.sentenceStarts = append(d.sentenceStarts, len(d.words))
		for _, word := range strings.Fields(line) {
			d.words = append(d.words, vocab.GetTerminalIndex(word))
			d.sentenceIDs = append(d.sentenceIDs, i)
		}
		d.words = append(d.words, phrase.EndOfLineID)
		d.sentenceIDs = append(d.sentenceIDs, i)
	}
	d.sentenceStarts = append(d.sentenceStarts, len(d.words))
	return d
}

// Read builds a DataArray from a newline-separated corpus.
func Read(r io.Reader, vocab phrase.Vocabulary) (*DataArray, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return FromLines(lines, vocab), nil
}

func (d *DataArray) GetSize() int {
	return len(d.words)
}

func (d *DataArray) GetWordID(position int) int {
	return d.words[position]
}

func (d *DataArray) GetData() []int {
	return d.words
}

func (d *DataArray) GetSentenceID(position int) int {
	return d.sentenceIDs[position]
}

func (d *DataArray) GetSentenceStart(sentenceID int) int {
	return d.sentenceStarts[sentenceID]
}

// GetSentenceLen returns the number of words in a sentence, excluding the
// end-of-line marker.
func (d *DataArray) GetSentenceLen(sentenceID int) int {
	return d.sentenceStarts[sentenceID+1] - d.sentenceStarts[sentenceID] - 1
}

func (d *DataArray) GetNumSentences() int {
	return len(d.sentenceStarts) - 1
}
