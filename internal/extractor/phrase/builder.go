package phrase

// Builder creates phrases over a vocabulary, renumbering gaps left to right.
type Builder struct {
	vocab Vocabulary
}

// NewBuilder returns a Builder classifying symbols with vocab.
func NewBuilder(vocab Vocabulary) *Builder {
	return &Builder{vocab: vocab}
}

// Build copies symbols into a new Phrase. Every non-terminal is replaced by
// the vocabulary's index for its rank among the phrase's gaps.
func (b *Builder) Build(symbols []int) Phrase {
	p := Phrase{
		symbols: make([]int, len(symbols)),
		chunks:  make([]int, 1, 3),
	}
	for i, s := range symbols {
		if b.vocab.IsTerminal(s) {
			p.symbols[i] = s
			p.chunks[p.arity]++
			continue
		}
		p.arity++
		p.symbols[i] = b.vocab.GetNonterminalIndex(p.arity)
		p.chunks = append(p.chunks, 0)
	}
	return p
}

// Extend returns base followed by symbol.
func (b *Builder) Extend(base Phrase, symbol int) Phrase {
	symbols := make([]int, 0, len(base.symbols)+1)
	symbols = append(symbols, base.symbols...)
	symbols = append(symbols, symbol)
	return b.Build(symbols)
}

// Suffix returns the phrase without its first symbol.
func (b *Builder) Suffix(p Phrase) Phrase {
	if len(p.symbols) == 0 {
		return p
	}
	return b.Build(p.symbols[1:])
}

// Trim drops leading and trailing non-terminals, yielding the
// terminal-anchored pattern whose occurrences stand in for p's.
func (b *Builder) Trim(p Phrase) Phrase {
	lo, hi := 0, len(p.symbols)
	for lo < hi && !b.vocab.IsTerminal(p.symbols[lo]) {
		lo++
	}
	for hi > lo && !b.vocab.IsTerminal(p.symbols[hi-1]) {
		hi--
	}
	if lo == 0 && hi == len(p.symbols) {
		return p
	}
	return b.Build(p.symbols[lo:hi])
}
