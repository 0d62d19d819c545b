package phrase

import (
	"fmt"
	"slices"
	"strings"
)

// Phrase is an immutable sequence of symbols. Terminal runs between
// non-terminal gaps are called chunks; a phrase with arity k has k+1 chunk
// lengths, where a chunk may be empty when the phrase starts or ends with a
// gap.
type Phrase struct {
	symbols []int
	chunks  []int
	arity   int
}

// Get returns a copy of the symbol sequence.
func (p Phrase) Get() []int {
	return slices.Clone(p.symbols)
}

// Symbols returns the symbol sequence without copying. Callers must not
// modify it.
func (p Phrase) Symbols() []int {
	return p.symbols
}

func (p Phrase) GetSymbol(i int) int {
	return p.symbols[i]
}

func (p Phrase) Size() int {
	return len(p.symbols)
}

func (p Phrase) Arity() int {
	return p.arity
}

// GetChunkLen returns the number of terminals in the i-th chunk, 0 <= i <= Arity.
func (p Phrase) GetChunkLen(i int) int {
	return p.chunks[i]
}

func (p Phrase) Empty() bool {
	return len(p.symbols) == 0
}

// StartsWithTerminal reports whether the first symbol is a terminal.
func (p Phrase) StartsWithTerminal() bool {
	return len(p.symbols) > 0 && p.symbols[0] >= 0
}

// EndsWithTerminal reports whether the last symbol is a terminal.
func (p Phrase) EndsWithTerminal() bool {
	return len(p.symbols) > 0 && p.symbols[len(p.symbols)-1] >= 0
}

func (p Phrase) Equal(other Phrase) bool {
	return slices.Equal(p.symbols, other.symbols)
}

// String renders the phrase with terminal strings and [X,k] gap markers.
func (p Phrase) String(vocab Vocabulary) string {
	parts := make([]string, len(p.symbols))
	for i, s := range p.symbols {
		if vocab.IsTerminal(s) {
			parts[i] = vocab.GetTerminalValue(s)
		} else {
			parts[i] = fmt.Sprintf("[X,%d]", -s)
		}
	}
	return strings.Join(parts, " ")
}
