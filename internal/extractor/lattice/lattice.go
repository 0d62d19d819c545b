// Package lattice represents an input sentence or word lattice as a DAG whose
// nodes are numbered in topological order. Epsilon edges are removed at
// construction and all-pairs hop distances are precomputed, so the extraction
// driver can ask which nodes a gap of a given length may reach.
package lattice

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
)

// Edge is a transition to Node labelled with a terminal Symbol. Prob is the
// edge's log probability; it is carried for downstream scoring only.
type Edge struct {
	Node   int
	Symbol int
	Prob   float64
}

// Extension is a node reachable from a start node in Distance edges.
type Extension struct {
	Node     int
	Distance int
}

// Lattice is immutable after construction.
type Lattice struct {
	graph    [][]Edge
	distance [][]int
}

// New parses input as a plain sentence when sentence is true and as the
// nested tuple lattice format otherwise.
func New(input string, vocab phrase.Vocabulary, sentence bool) (*Lattice, error) {
	if sentence {
		return FromSentence(input, vocab), nil
	}
	return Parse(input, vocab)
}

// FromSentence builds a chain lattice with one edge per whitespace-separated
// word.
func FromSentence(input string, vocab phrase.Vocabulary) *Lattice {
	words := strings.Fields(input)
	graph := make([][]Edge, len(words)+1)
	for i, w := range words {
		graph[i] = []Edge{{Node: i + 1, Symbol: vocab.GetTerminalIndex(w)}}
	}
	return newLattice(graph)
}

// Parse reads the nested tuple lattice format. Malformed input is reported as
// ErrMalformedLattice, a non-positive node delta as ErrInvalidNodeDelta; both
// carry the byte offset of the problem.
func Parse(input string, vocab phrase.Vocabulary) (*Lattice, error) {
	p := &parser{input: input, vocab: vocab}
	egraph, err := p.parse()
	if err != nil {
		return nil, err
	}
	return newLattice(removeEpsilons(egraph, vocab.GetTerminalIndex(phrase.Epsilon))), nil
}

func newLattice(graph [][]Edge) *Lattice {
	l := &Lattice{graph: graph}
	l.computeDistances()
	return l
}

// removeEpsilons rewrites egraph so that every path's terminal labels and
// endpoints survive while no epsilon edge remains.
//
// The forward pass extends every non-epsilon edge followed by an epsilon
// edge into a single edge, keeping the epsilon edges. The backward pass, from
// the last node to the first, replaces every epsilon edge into a node by that
// node's already final outgoing edges, so chains of epsilons collapse.
func removeEpsilons(egraph [][]Edge, epsilon int) [][]Edge {
	graph := make([][]Edge, len(egraph))
	// reverse[n] holds the edges into n, with Node set to their origin.
	reverse := make([][]Edge, len(egraph))
	for node, edges := range egraph {
		for _, edge := range edges {
			if edge.Symbol == epsilon {
				for _, in := range reverse[node] {
					if in.Symbol == epsilon {
						continue
					}
					graph[in.Node] = append(graph[in.Node], Edge{Node: edge.Node, Symbol: in.Symbol, Prob: in.Prob + edge.Prob})
					reverse[edge.Node] = append(reverse[edge.Node], Edge{Node: in.Node, Symbol: in.Symbol, Prob: in.Prob + edge.Prob})
				}
			}
			graph[node] = append(graph[node], edge)
			reverse[edge.Node] = append(reverse[edge.Node], Edge{Node: node, Symbol: edge.Symbol, Prob: edge.Prob})
		}
	}

	out := make([][]Edge, len(graph))
	for node := len(graph) - 1; node >= 0; node-- {
		for _, in := range reverse[node] {
			if in.Symbol != epsilon {
				out[in.Node] = append(out[in.Node], Edge{Node: node, Symbol: in.Symbol, Prob: in.Prob})
				continue
			}
			for _, edge := range out[node] {
				out[in.Node] = append(out[in.Node], Edge{Node: edge.Node, Symbol: edge.Symbol, Prob: edge.Prob + in.Prob})
			}
		}
	}
	return out
}

// computeDistances relaxes edges in node order from every start node. Edges
// only go forward, so one pass per start node yields shortest hop counts.
// Unreachable pairs keep the node count.
func (l *Lattice) computeDistances() {
	n := len(l.graph)
	l.distance = make([][]int, n)
	for start := range l.distance {
		row := make([]int, n)
		for i := range row {
			row[i] = n
		}
		row[start] = 0
		for node := start; node < n; node++ {
			for _, e := range l.graph[node] {
				row[e.Node] = min(row[e.Node], row[node]+1)
			}
		}
		l.distance[start] = row
	}
}

// Size returns the number of nodes.
func (l *Lattice) Size() int {
	return len(l.graph)
}

// Transitions returns the outgoing edges of node. Callers must not modify
// the result.
func (l *Lattice) Transitions(node int) []Edge {
	return l.graph[node]
}

// Distance returns the fewest edges from one node to another, or Size() when
// to is unreachable.
func (l *Lattice) Distance(from, to int) int {
	return l.distance[from][to]
}

// Extensions returns the nodes after node whose distance from it lies in
// [max(low, 1), min(high, Size()-1)], in node order.
func (l *Lattice) Extensions(node, low, high int) []Extension {
	lo, hi := max(low, 1), min(high, len(l.graph)-1)
	var out []Extension
	for next := node + 1; next < len(l.graph); next++ {
		if d := l.distance[node][next]; d >= lo && d <= hi {
			out = append(out, Extension{Node: next, Distance: d})
		}
	}
	return out
}
