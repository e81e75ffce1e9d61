package dg

import (
	"github.com/notargets/dgad/basis"
)

// cellTable holds the reference data of one (degree, quadrature order) pair.
type cellTable struct {
	Basis *basis.TensorBasis
	Quad  *basis.Quadrature
	// Values and reference gradients at the volume points, [q][i] and [q][i][r]
	Phi  [][]float64
	DPhi [][][]float64
	// Collocation derivative along one axis of the volume points
	D [][]float64
}

// tables caches the reference data by degree and points per direction. It
// is filled before any worker starts and read only afterwards.
type tables struct {
	dim   int
	cells map[[2]int]*cellTable
	faces map[int]*basis.Quadrature
}

func newTables(dim int) *tables {
	return &tables{
		dim:   dim,
		cells: make(map[[2]int]*cellTable),
		faces: make(map[int]*basis.Quadrature),
	}
}

func (tb *tables) prepare(degree, nq int) {
	if _, ok := tb.cells[[2]int{degree, nq}]; !ok {
		var (
			b = basis.NewTensorBasis(tb.dim, degree)
			q = basis.NewQuadrature(tb.dim, nq)
			t = &cellTable{Basis: b, Quad: q, D: basis.LagrangeDerivative(q.Nodes1D)}
		)
		t.Phi = make([][]float64, len(q.Points))
		t.DPhi = make([][][]float64, len(q.Points))
		for k, xi := range q.Points {
			t.Phi[k] = b.Values(xi)
			t.DPhi[k] = b.Gradients(xi)
		}
		tb.cells[[2]int{degree, nq}] = t
	}
	if _, ok := tb.faces[nq]; !ok {
		tb.faces[nq] = basis.NewQuadrature(tb.dim-1, nq)
	}
}

func (tb *tables) cell(degree, nq int) *cellTable {
	t, ok := tb.cells[[2]int{degree, nq}]
	if !ok {
		panic("reference tables not prepared")
	}
	return t
}

func (tb *tables) face(nq int) *basis.Quadrature {
	q, ok := tb.faces[nq]
	if !ok {
		panic("face quadrature not prepared")
	}
	return q
}
