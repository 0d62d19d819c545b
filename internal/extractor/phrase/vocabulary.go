// Package phrase provides the symbol vocabulary and the immutable Phrase
// patterns matched against the corpus. Terminal symbols have non-negative IDs;
// the k-th non-terminal gap of a phrase is -k.
package phrase

import (
	"sync"
)

const (
	NullWord  = "__NULL__"
	EndOfLine = "__END_OF_LINE__"
	Epsilon   = "*EPS*"

	NullWordID  = 0
	EndOfLineID = 1
)

// Vocabulary maps terminal strings to stable integer IDs.
type Vocabulary interface {
	// GetTerminalIndex returns the ID of word, assigning a new one if needed.
	GetTerminalIndex(word string) int
	GetTerminalValue(id int) string
	IsTerminal(symbol int) bool
	GetNonterminalIndex(rank int) int
}

// MemoryVocabulary is an in-memory Vocabulary safe for concurrent use by
// extraction workers sharing one corpus.
type MemoryVocabulary struct {
	mu    sync.RWMutex
	ids   map[string]int
	words []string
}

// NewMemoryVocabulary returns a vocabulary holding only the reserved symbols.
func NewMemoryVocabulary() *MemoryVocabulary {
	v := &MemoryVocabulary{
		ids: make(map[string]int),
	}
	v.GetTerminalIndex(NullWord)
	v.GetTerminalIndex(EndOfLine)
	return v
}

// GetTerminalIndex returns the ID of word, assigning the next free ID on
// first use.
func (v *MemoryVocabulary) GetTerminalIndex(word string) int {
	v.mu.RLock()
	id, ok := v.ids[word]
	v.mu.RUnlock()
	if ok {
		return id
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.ids[word]; ok {
		return id
	}
	id = len(v.words)
	v.ids[word] = id
	v.words = append(v.words, word)
	return id
}

// Lookup returns the ID of word without assigning one.
func (v *MemoryVocabulary) Lookup(word string) (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	id, ok := v.ids[word]
	return id, ok
}

func (v *MemoryVocabulary) GetTerminalValue(id int) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if id < 0 || id >= len(v.words) {
		return ""
	}
	return v.words[id]
}

func (v *MemoryVocabulary) IsTerminal(symbol int) bool {
	return symbol >= 0
}

func (v *MemoryVocabulary) GetNonterminalIndex(rank int) int {
	return -rank
}

func (v *MemoryVocabulary) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.words)
}
