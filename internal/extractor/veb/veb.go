// Package veb implements a van Emde Boas successor tree over a bounded
// integer universe. The intersector uses it to emit the corpus positions of a
// suffix-array range in increasing order in O(k log log U) instead of sorting.
package veb

import (
	"fmt"
	"math/bits"
)

// None is returned by Minimum and Successor when no value qualifies.
const None = -1

// leafBits is the largest universe (as a power of two) stored as a single
// machine word.
const leafBits = 6

// Tree is a van Emde Boas tree. Every level owns its summary and its cluster
// sub-trees; clusters are allocated on first insert. The minimum of a
// non-leaf level is kept only at that level and never pushed into a cluster.
type Tree struct {
	universe  int
	lowerBits int
	min, max  int

	word uint64

	summary  *Tree
	clusters []*Tree
}

// New returns an empty tree able to hold the values 0..size-1.
func New(size int) *Tree {
	if size < 1 {
		size = 1
	}
	return newTree(bits.Len(uint(size - 1)))
}

func newTree(universeBits int) *Tree {
	t := &Tree{
		universe: 1 << universeBits,
		min:      None,
		max:      None,
	}
	if universeBits <= leafBits {
		return t
	}
	t.lowerBits = universeBits / 2
	t.clusters = make([]*Tree, 1<<(universeBits-t.lowerBits))
	return t
}

// Universe returns the exclusive upper bound on storable values.
func (t *Tree) Universe() int {
	return t.universe
}

func (t *Tree) isLeaf() bool {
	return t.clusters == nil
}

// Empty reports whether nothing has been inserted.
func (t *Tree) Empty() bool {
	return t.min == None
}

// Insert adds v to the set. Inserting a value twice is a no-op.
func (t *Tree) Insert(v int) {
	if v < 0 || v >= t.universe {
		panic(fmt.Sprintf("veb: value %d outside universe [0, %d)", v, t.universe))
	}
	t.insert(v)
}

func (t *Tree) insert(v int) {
	if t.isLeaf() {
		t.word |= 1 << uint(v)
		t.min = bits.TrailingZeros64(t.word)
		t.max = 63 - bits.LeadingZeros64(t.word)
		return
	}
	if t.min == None {
		t.min, t.max = v, v
		return
	}
	if v == t.min {
		return
	}
	if v < t.min {
		v, t.min = t.min, v
	}
	if v > t.max {
		t.max = v
	}

	high, low := t.split(v)
	cluster := t.clusters[high]
	if cluster == nil {
		cluster = newTree(t.lowerBits)
		t.clusters[high] = cluster
	}
	if cluster.min == None {
		if t.summary == nil {
			t.summary = newTree(bits.Len(uint(len(t.clusters) - 1)))
		}
		t.summary.insert(high)
	}
	cluster.insert(low)
}

// Minimum returns the smallest inserted value, or None.
func (t *Tree) Minimum() int {
	return t.min
}

// Maximum returns the largest inserted value, or None.
func (t *Tree) Maximum() int {
	return t.max
}

// Successor returns the smallest inserted value strictly greater than v, or
// None. Any negative v yields the minimum.
func (t *Tree) Successor(v int) int {
	if v < 0 {
		return t.min
	}
	if v >= t.universe-1 {
		return None
	}
	return t.successor(v)
}

func (t *Tree) successor(v int) int {
	if t.min == None || v >= t.max {
		return None
	}
	if t.isLeaf() {
		rest := t.word & (^uint64(0) << uint(v+1))
		if rest == 0 {
			return None
		}
		return bits.TrailingZeros64(rest)
	}
	if v < t.min {
		return t.min
	}

	high, low := t.split(v)
	if cluster := t.clusters[high]; cluster != nil && cluster.min != None && low < cluster.max {
		return t.compose(high, cluster.successor(low))
	}
	if t.summary == nil {
		return None
	}
	next := t.summary.successor(high)
	if next == None {
		return None
	}
	return t.compose(next, t.clusters[next].min)
}

// Drain appends every stored value to dst in increasing order.
func (t *Tree) Drain(dst []int) []int {
	for v := t.Minimum(); v != None; v = t.Successor(v) {
		dst = append(dst, v)
	}
	return dst
}

func (t *Tree) split(v int) (high, low int) {
	return v >> uint(t.lowerBits), v & (1<<uint(t.lowerBits) - 1)
}

func (t *Tree) compose(high, low int) int {
	return high<<uint(t.lowerBits) | low
}
