package lattice

import (
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
)

// parser reads the nested tuple format
//
//	((('word', prob, delta),...),...,)
//
// where every inner list holds the outgoing edges of one node, in node order.
// Inside a word a backslash escapes the next character.
type parser struct {
	input string
	pos   int
	vocab phrase.Vocabulary
}

func (p *parser) parse() ([][]Edge, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var graph [][]Edge
	// deltaAt[node][i] is the input offset of the delta of graph[node][i].
	var deltaAt [][]int
	c, err := p.next()
	for err == nil && c == '(' {
		node := len(graph)
		graph = append(graph, nil)
		deltaAt = append(deltaAt, nil)
		for c, err = p.next(); err == nil && c == '('; c, err = p.next() {
			edge, offset, err := p.edge(node)
			if err != nil {
				return nil, err
			}
			graph[node] = append(graph[node], edge)
			deltaAt[node] = append(deltaAt[node], offset)
		}
		if err != nil {
			return nil, err
		}
		if c != ')' {
			return nil, p.errorf(p.pos-1, "expected ')' closing node %d, found %q", node, c)
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		c, err = p.next()
	}
	if err != nil {
		return nil, err
	}
	if c != ')' {
		return nil, p.errorf(p.pos-1, "expected '(' or ')', found %q", c)
	}
	if rest := strings.TrimSpace(p.input[p.pos:]); rest != "" {
		return nil, p.errorf(p.pos, "trailing input %q", rest)
	}

	// The last node has no edge list of its own.
	graph = append(graph, nil)
	for node, edges := range graph {
		for i, e := range edges {
			if e.Node >= len(graph) {
				return nil, apperrors.AtOffset(apperrors.ErrInvalidNodeDelta, deltaAt[node][i],
					"edge from node %d to %d leaves the lattice of %d nodes", node, e.Node, len(graph))
			}
		}
	}
	return graph, nil
}

// edge parses one ('word', prob, delta), tuple after its opening parenthesis
// and returns the edge with the offset of its delta.
func (p *parser) edge(node int) (Edge, int, error) {
	if err := p.expect('\''); err != nil {
		return Edge{}, 0, err
	}
	word, err := p.word()
	if err != nil {
		return Edge{}, 0, err
	}
	if err := p.expect(','); err != nil {
		return Edge{}, 0, err
	}

	start, token := p.number()
	prob, perr := strconv.ParseFloat(token, 64)
	if perr != nil {
		return Edge{}, 0, p.errorf(start, "bad probability %q", token)
	}
	if err := p.expect(','); err != nil {
		return Edge{}, 0, err
	}

	deltaStart, token := p.number()
	delta, perr := strconv.Atoi(token)
	if perr != nil {
		return Edge{}, 0, p.errorf(deltaStart, "bad node delta %q", token)
	}
	if delta <= 0 {
		return Edge{}, 0, apperrors.AtOffset(apperrors.ErrInvalidNodeDelta, deltaStart,
			"node delta must be positive, got %d", delta)
	}
	if err := p.expect(')'); err != nil {
		return Edge{}, 0, err
	}
	if err := p.expect(','); err != nil {
		return Edge{}, 0, err
	}
	return Edge{Node: node + delta, Symbol: p.vocab.GetTerminalIndex(word), Prob: prob}, deltaStart, nil
}

func (p *parser) word() (string, error) {
	var b strings.Builder
	for {
		c, err := p.next()
		if err != nil {
			return "", err
		}
		switch c {
		case '\'':
			return b.String(), nil
		case '\\':
			if c, err = p.next(); err != nil {
				return "", err
			}
		}
		b.WriteByte(c)
	}
}

// number returns the offset and text of the numeric token ending before the
// next ',' or ')', skipping leading whitespace.
func (p *parser) number() (int, string) {
	for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		p.pos++
	}
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != ',' && p.input[p.pos] != ')' {
		p.pos++
	}
	return start, strings.TrimSpace(p.input[start:p.pos])
}

func (p *parser) next() (byte, error) {
	if p.pos >= len(p.input) {
		return 0, p.errorf(p.pos, "unexpected end of input")
	}
	c := p.input[p.pos]
	p.pos++
	return c, nil
}

func (p *parser) expect(want byte) error {
	c, err := p.next()
	if err != nil {
		return err
	}
	if c != want {
		return p.errorf(p.pos-1, "expected %q, found %q", want, c)
	}
	return nil
}

func (p *parser) errorf(offset int, format string, args ...any) error {
	return apperrors.AtOffset(apperrors.ErrMalformedLattice, offset, format, args...)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
