// Package linalg holds the distributed vectors and sparse matrices the
// assembly writes into. Every object is the local piece of a global object
// on one rank: owned entries in a contiguous global range plus read only
// copies (ghosts) of entries owned elsewhere.
package linalg

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotLocal     = errors.New("linalg: index is neither owned nor ghosted")
	ErrNotInPattern = errors.New("linalg: entry is outside the sparsity pattern")
	ErrReadOnly     = errors.New("linalg: write to a read only object")
)

// Partitioning splits the global index range among ranks; rank r owns
// [Starts[r], Starts[r+1]).
type Partitioning struct {
	Starts []int
}

// NewPartitioning builds the partitioning from per rank owned counts.
func NewPartitioning(counts []int) (p Partitioning) {
	p.Starts = make([]int, len(counts)+1)
	for r, n := range counts {
		p.Starts[r+1] = p.Starts[r] + n
	}
	return
}

func (p Partitioning) N() int { return p.Starts[len(p.Starts)-1] }

func (p Partitioning) NRanks() int { return len(p.Starts) - 1 }

func (p Partitioning) Range(rank int) (lo, hi int) {
	return p.Starts[rank], p.Starts[rank+1]
}

func (p Partitioning) Owner(i int) int {
	if i < 0 || i >= p.N() {
		panic(fmt.Sprintf("global index %d out of range [0,%d)", i, p.N()))
	}
	return sort.Search(p.NRanks(), func(r int) bool { return p.Starts[r+1] > i })
}
