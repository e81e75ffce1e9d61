package linalg

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/dgad/parallel"
)

// Vector is one rank's piece of a distributed vector. Data holds the owned
// entries followed by the ghost entries in increasing global order.
type Vector struct {
	Part     Partitioning
	Rank     int
	Data     []float64
	lo, hi   int
	ghosts   []int
	ghostPos map[int]int
}

func NewVector(part Partitioning, rank int, ghosts []int) (v *Vector) {
	lo, hi := part.Range(rank)
	v = &Vector{
		Part:     part,
		Rank:     rank,
		lo:       lo,
		hi:       hi,
		ghostPos: make(map[int]int),
	}
	gs := make([]int, 0, len(ghosts))
	for _, g := range ghosts {
		if g >= lo && g < hi {
			continue
		}
		if _, dup := v.ghostPos[g]; dup {
			continue
		}
		v.ghostPos[g] = -1
		gs = append(gs, g)
	}
	sort.Ints(gs)
	for i, g := range gs {
		v.ghostPos[g] = hi - lo + i
	}
	v.ghosts = gs
	v.Data = make([]float64, hi-lo+len(gs))
	return
}

// OwnedRange is the global range of owned entries.
func (v *Vector) OwnedRange() (lo, hi int) { return v.lo, v.hi }

func (v *Vector) Owned() []float64 { return v.Data[:v.hi-v.lo] }

func (v *Vector) Ghosts() []int { return v.ghosts }

func (v *Vector) IsOwned(i int) bool { return i >= v.lo && i < v.hi }

// Has reports whether global entry i is stored here, owned or ghosted.
func (v *Vector) Has(i int) bool {
	_, ok := v.ghostPos[i]
	return ok || v.IsOwned(i)
}

func (v *Vector) pos(i int) int {
	if i >= v.lo && i < v.hi {
		return i - v.lo
	}
	if p, ok := v.ghostPos[i]; ok {
		return p
	}
	panic(fmt.Errorf("%w: global index %d on rank %d", ErrNotLocal, i, v.Rank))
}

func (v *Vector) At(i int) float64 { return v.Data[v.pos(i)] }

func (v *Vector) Set(i int, val float64) { v.Data[v.pos(i)] = val }

func (v *Vector) Add(i int, val float64) { v.Data[v.pos(i)] += val }

func (v *Vector) Zero() {
	for i := range v.Data {
		v.Data[i] = 0
	}
}

// Clone copies the layout and the values.
func (v *Vector) Clone() (c *Vector) {
	c = &Vector{
		Part:     v.Part,
		Rank:     v.Rank,
		lo:       v.lo,
		hi:       v.hi,
		ghosts:   v.ghosts,
		ghostPos: v.ghostPos,
		Data:     make([]float64, len(v.Data)),
	}
	copy(c.Data, v.Data)
	return
}

// CopyFrom copies the values of a vector with the same layout.
func (v *Vector) CopyFrom(w *Vector) {
	if len(v.Data) != len(w.Data) || v.lo != w.lo {
		panic("vector layouts differ")
	}
	copy(v.Data, w.Data)
}

// UpdateGhosts refreshes every ghost entry from its owner. Collective.
func (v *Vector) UpdateGhosts(c *parallel.Comm) {
	// Ask the owners for the ghost values
	requests := make(map[int]*parallel.Packet)
	for r := 0; r < c.Size; r++ {
		requests[r] = &parallel.Packet{}
	}
	for _, g := range v.ghosts {
		owner := v.Part.Owner(g)
		requests[owner].Idx = append(requests[owner].Idx, g)
	}
	replies := make(map[int]*parallel.Packet)
	for _, req := range c.Exchange(requests) {
		rep := &parallel.Packet{Idx: req.Idx, Val: make([]float64, len(req.Idx))}
		for k, i := range req.Idx {
			rep.Val[k] = v.Data[i-v.lo]
		}
		replies[req.From] = rep
	}
	for _, rep := range c.Exchange(replies) {
		for k, i := range rep.Idx {
			v.Data[v.ghostPos[i]] = rep.Val[k]
		}
	}
}

// CompressAdd adds the ghost entries into their owners and zeroes the ghosts.
// Collective.
func (v *Vector) CompressAdd(c *parallel.Comm) {
	out := make(map[int]*parallel.Packet)
	for r := 0; r < c.Size; r++ {
		out[r] = &parallel.Packet{}
	}
	for _, g := range v.ghosts {
		p := v.ghostPos[g]
		pkt := out[v.Part.Owner(g)]
		pkt.Idx = append(pkt.Idx, g)
		pkt.Val = append(pkt.Val, v.Data[p])
		v.Data[p] = 0
	}
	for _, pkt := range c.Exchange(out) {
		for k, i := range pkt.Idx {
			v.Data[i-v.lo] += pkt.Val[k]
		}
	}
}

// Dot is the global inner product over owned entries. Collective.
func (v *Vector) Dot(w *Vector, c *parallel.Comm) float64 {
	return c.AllReduceSum(floats.Dot(v.Owned(), w.Owned()))[0]
}

// L2Norm is the global Euclidean norm over owned entries. Collective.
func (v *Vector) L2Norm(c *parallel.Comm) float64 {
	o := v.Owned()
	return math.Sqrt(c.AllReduceSum(floats.Dot(o, o))[0])
}

// Equal reports whether both vectors hold identical local values.
func (v *Vector) Equal(w *Vector) bool {
	return floats.Equal(v.Data, w.Data)
}

// LInfNorm is the global maximum magnitude over owned entries. Collective.
func (v *Vector) LInfNorm(c *parallel.Comm) float64 {
	var local float64
	if o := v.Owned(); len(o) > 0 {
		local = floats.Norm(o, math.Inf(1))
	}
	return c.AllReduceMax(local)
}
