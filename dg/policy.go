package dg

import (
	"errors"
	"math"

	"github.com/notargets/dgad/basis"
	"github.com/notargets/dgad/mesh"
)

var (
	ErrNoSparsityPattern = errors.New("dg: derivative requested before AllocateSystem built the sparsity patterns")
	ErrUnknownForm       = errors.New("dg: unknown discretization form")
	ErrUnknownSecondAD   = errors.New("dg: unknown second order differentiation type")
	ErrNoFreeStream      = errors.New("dg: flow functions need the Euler equations")
)

// CurrentCellShouldDoTheWork decides which of two distinct active cells
// sharing a face integrates it. Lower rank first, then the coarser cell,
// then the lower cell index. Exactly one of (a,b) and (b,a) is true.
func CurrentCellShouldDoTheWork(current, neighbor *mesh.Cell) bool {
	switch {
	case current.Rank != neighbor.Rank:
		return current.Rank < neighbor.Rank
	case current.Level != neighbor.Level:
		return current.Level < neighbor.Level
	}
	return current.ID < neighbor.ID
}

// EvaluatePenaltyScaling is p(p+1)/h for the cell's degree p, with h the
// extent of the cell normal to face. Degree zero is treated as one.
func (dg *DG) EvaluatePenaltyScaling(cell, face int) float64 {
	p := float64(dg.DoF.Degree(cell))
	degsq := p * (p + 1)
	if degsq == 0 {
		degsq = 1
	}
	return degsq / dg.cellExtent(cell, basis.FaceAxis(face))
}

// cellExtent is the distance between the centroids of the two faces normal
// to axis, taken from the current node positions.
func (dg *DG) cellExtent(cell, axis int) float64 {
	var (
		dim      = dg.Mesh.Dim
		verts    = dg.Mesh.Cells[cell].Vertices
		nodes    = dg.DoF.CellNodeDofs(cell)
		lo, hi   = make([]float64, dim), make([]float64, dim)
		nPerSide = float64(len(verts) / 2)
	)
	for v := range verts {
		side := lo
		if (v>>axis)&1 == 1 {
			side = hi
		}
		for d := 0; d < dim; d++ {
			side[d] += dg.VolumeNodes.At(nodes[v*dim+d]) / nPerSide
		}
	}
	var h2 float64
	for d := 0; d < dim; d++ {
		h2 += (hi[d] - lo[d]) * (hi[d] - lo[d])
	}
	return math.Sqrt(h2)
}

// facePenalty averages the scaling of the two sides of an interior face.
func (dg *DG) facePenalty(cellA, faceA, cellB, faceB int) float64 {
	return 0.5 * (dg.EvaluatePenaltyScaling(cellA, faceA) + dg.EvaluatePenaltyScaling(cellB, faceB))
}
