package linalg

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/dgad/parallel"
)

// Pattern collects the nonzero positions of the owned rows of a matrix
// before it is allocated. Entries for rows owned elsewhere are ignored, so a
// pattern may be built by sweeping the whole mesh on every rank.
type Pattern struct {
	Rows   Partitioning
	Rank   int
	NCols  int
	lo, hi int
	rows   []map[int]struct{}
}

func NewPattern(rows Partitioning, rank, nCols int) (p *Pattern) {
	lo, hi := rows.Range(rank)
	p = &Pattern{
		Rows:  rows,
		Rank:  rank,
		NCols: nCols,
		lo:    lo,
		hi:    hi,
		rows:  make([]map[int]struct{}, hi-lo),
	}
	for i := range p.rows {
		p.rows[i] = make(map[int]struct{})
	}
	return
}

func (p *Pattern) Add(i, j int) {
	if i < p.lo || i >= p.hi {
		return
	}
	p.rows[i-p.lo][j] = struct{}{}
}

// AddBlock adds the dense coupling between every row and every column.
func (p *Pattern) AddBlock(rows, cols []int) {
	for _, i := range rows {
		if i < p.lo || i >= p.hi {
			continue
		}
		r := p.rows[i-p.lo]
		for _, j := range cols {
			r[j] = struct{}{}
		}
	}
}

func (p *Pattern) compile() (indptr, ind []int) {
	indptr = make([]int, len(p.rows)+1)
	for r, cols := range p.rows {
		start := len(ind)
		for j := range cols {
			ind = append(ind, j)
		}
		sort.Ints(ind[start:])
		indptr[r+1] = len(ind)
	}
	return
}

// SparseMatrix holds the owned rows of a distributed CSR matrix with a fixed
// pattern. Contributions to rows owned by other ranks are stashed until
// Compress.
type SparseMatrix struct {
	M        *sparse.CSR
	Rows     Partitioning
	Rank     int
	lo, hi   int
	raw      *blas.SparseMatrix
	stash    map[[2]int]float64
	readOnly bool
	name     string
}

func NewSparseMatrix(p *Pattern) (m *SparseMatrix) {
	indptr, ind := p.compile()
	m = &SparseMatrix{
		M:     sparse.NewCSR(p.hi-p.lo, p.NCols, indptr, ind, make([]float64, len(ind))),
		Rows:  p.Rows,
		Rank:  p.Rank,
		lo:    p.lo,
		hi:    p.hi,
		stash: make(map[[2]int]float64),
		name:  "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	m.raw = m.M.RawMatrix()
	return
}

// Dims are the global dimensions.
func (m *SparseMatrix) Dims() (r, c int) {
	_, c = m.M.Dims()
	return m.Rows.N(), c
}

func (m *SparseMatrix) NNZ() int { return m.M.NNZ() }

// Data exposes the stored values of the owned rows.
func (m *SparseMatrix) Data() []float64 { return m.raw.Data }

func (m *SparseMatrix) OwnedRange() (lo, hi int) { return m.lo, m.hi }

func (m *SparseMatrix) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

func (m *SparseMatrix) SetWritable() { m.readOnly = false }

func (m *SparseMatrix) checkWritable() {
	if m.readOnly {
		panic(fmt.Errorf("%w: matrix named \"%v\"", ErrReadOnly, m.name))
	}
}

func (m *SparseMatrix) position(i, j int) (pos int, ok bool) {
	var (
		r      = i - m.lo
		lo, hi = m.raw.Indptr[r], m.raw.Indptr[r+1]
		row    = m.raw.Ind[lo:hi]
		k      = sort.SearchInts(row, j)
	)
	if k < len(row) && row[k] == j {
		return lo + k, true
	}
	return 0, false
}

// At returns the value at a global position in an owned row.
func (m *SparseMatrix) At(i, j int) float64 {
	if i < m.lo || i >= m.hi {
		panic(fmt.Errorf("%w: row %d on rank %d", ErrNotLocal, i, m.Rank))
	}
	if pos, ok := m.position(i, j); ok {
		return m.raw.Data[pos]
	}
	return 0
}

// InPattern reports whether (i,j) of an owned row is stored.
func (m *SparseMatrix) InPattern(i, j int) (ok bool) {
	_, ok = m.position(i, j)
	return
}

func (m *SparseMatrix) Add(i, j int, v float64) {
	m.checkWritable()
	if i < m.lo || i >= m.hi {
		m.stash[[2]int{i, j}] += v
		return
	}
	pos, ok := m.position(i, j)
	if !ok {
		panic(fmt.Errorf("%w: (%d,%d) in %s", ErrNotInPattern, i, j, m.name))
	}
	m.raw.Data[pos] += v
}

func (m *SparseMatrix) Set(i, j int, v float64) {
	m.checkWritable()
	if i < m.lo || i >= m.hi {
		panic(fmt.Errorf("%w: row %d on rank %d", ErrNotLocal, i, m.Rank))
	}
	pos, ok := m.position(i, j)
	if !ok {
		panic(fmt.Errorf("%w: (%d,%d) in %s", ErrNotInPattern, i, j, m.name))
	}
	m.raw.Data[pos] = v
}

func (m *SparseMatrix) Zero() {
	m.checkWritable()
	for i := range m.raw.Data {
		m.raw.Data[i] = 0
	}
	clear(m.stash)
}

// Compress moves the stashed off rank contributions to their owners.
// Collective.
func (m *SparseMatrix) Compress(c *parallel.Comm) {
	out := make(map[int]*parallel.Packet)
	for r := 0; r < c.Size; r++ {
		out[r] = &parallel.Packet{}
	}
	keys := make([][2]int, 0, len(m.stash))
	for k := range m.stash {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	for _, k := range keys {
		pkt := out[m.Rows.Owner(k[0])]
		pkt.Idx = append(pkt.Idx, k[0], k[1])
		pkt.Val = append(pkt.Val, m.stash[k])
	}
	clear(m.stash)
	for _, pkt := range c.Exchange(out) {
		for n, v := range pkt.Val {
			m.Add(pkt.Idx[2*n], pkt.Idx[2*n+1], v)
		}
	}
}

// Each calls fn for every stored entry of the owned rows.
func (m *SparseMatrix) Each(fn func(i, j int, v float64)) {
	for r := 0; r < m.hi-m.lo; r++ {
		for pos := m.raw.Indptr[r]; pos < m.raw.Indptr[r+1]; pos++ {
			fn(r+m.lo, m.raw.Ind[pos], m.raw.Data[pos])
		}
	}
}

// AddScaled adds s*o into m. The pattern of o must be contained in m's.
func (m *SparseMatrix) AddScaled(o *SparseMatrix, s float64) {
	o.Each(func(i, j int, v float64) {
		m.Add(i, j, s*v)
	})
}

// CopyFrom copies the values of a matrix with the same pattern.
func (m *SparseMatrix) CopyFrom(o *SparseMatrix) {
	m.checkWritable()
	if len(o.raw.Data) != len(m.raw.Data) {
		panic("matrix patterns differ")
	}
	copy(m.raw.Data, o.raw.Data)
}

// MulVec computes y = m*x over the owned rows. x must hold every column
// referenced by the pattern, owned or ghosted.
func (m *SparseMatrix) MulVec(x, y *Vector) {
	for r := 0; r < m.hi-m.lo; r++ {
		var sum float64
		for pos := m.raw.Indptr[r]; pos < m.raw.Indptr[r+1]; pos++ {
			sum += m.raw.Data[pos] * x.At(m.raw.Ind[pos])
		}
		y.Set(r+m.lo, sum)
	}
}

// Equal reports whether both matrices hold identical local values.
func (m *SparseMatrix) Equal(o *SparseMatrix) bool {
	return floats.Equal(m.raw.Data, o.raw.Data)
}

// FrobeniusNorm of the global matrix. Collective.
func (m *SparseMatrix) FrobeniusNorm(c *parallel.Comm) float64 {
	return math.Sqrt(c.AllReduceSum(floats.Dot(m.raw.Data, m.raw.Data))[0])
}
