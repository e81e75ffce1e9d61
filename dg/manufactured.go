package dg

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/linalg"
	"github.com/notargets/dgad/physics"
)

// InitializeManufacturedSolution sets Solution to the L2 projection of the
// manufactured solution of the configured physics and refreshes the ghosts.
// Collective.
func (dg *DG) InitializeManufacturedSolution() (err error) {
	var (
		h   = dg.DoF
		dim = dg.Mesh.Dim
		mms = physics.For[ad.Real](dg.Physics).ManufacturedSolution()
	)
	for _, id := range h.LocalCells() {
		var (
			c    = dg.realState(id)
			tab  = c.Table
			nb   = tab.Basis.N
			dofs = h.CellDofs(id)
			rhs  = mat.NewDense(nb, h.NState, nil)
		)
		for k, xi := range tab.Quad.Points {
			var (
				g   = evalGeometry(dim, c.X, xi)
				u   = mms.Value(g.X)
				jxw = g.Det.Value() * tab.Quad.Weights[k]
			)
			for s := 0; s < h.NState; s++ {
				for i := 0; i < nb; i++ {
					rhs.Set(i, s, rhs.At(i, s)+tab.Phi[k][i]*u[s].Value()*jxw)
				}
			}
		}
		var coeffs mat.Dense
		if serr := coeffs.Solve(dg.cellMass(c), rhs); serr != nil {
			err = multierr.Append(err, fmt.Errorf("projection on cell %d: %w", id, serr))
			continue
		}
		for s := 0; s < h.NState; s++ {
			for i := 0; i < nb; i++ {
				dg.Solution.Set(dofs[s*nb+i], coeffs.At(i, s))
			}
		}
	}
	dg.Solution.UpdateGhosts(dg.Comm)
	return
}

// DiscontinuitySensor is log10 of the share of the first state's energy
// held by the highest modes, per local cell. Degree zero cells and cells
// without energy in those modes get -Inf. The values are kept in
// ArtificialDissipationCoeffs; the residual does not use them.
func (dg *DG) DiscontinuitySensor() []float64 {
	h := dg.DoF
	for k, id := range h.LocalCells() {
		var (
			p           = h.Degree(id)
			tb          = dg.tables.cell(p, p+1+dg.Params.Overintegration).Basis
			dofs        = h.CellDofs(id)
			total, high float64
		)
		for i := 0; i < tb.N; i++ {
			w := dg.Solution.At(dofs[i])
			total += w * w
		}
		for _, i := range tb.HighestModes() {
			w := dg.Solution.At(dofs[i])
			high += w * w
		}
		dg.ArtificialDissipationCoeffs[k] = math.Inf(-1)
		if p > 0 && high > 0 {
			dg.ArtificialDissipationCoeffs[k] = math.Log10(high / total)
		}
	}
	return dg.ArtificialDissipationCoeffs
}

// GetDRdWFiniteDifferences approximates dR/dW by central differences on the
// dR/dW pattern. Two residual evaluations per global unknown. Collective.
func (dg *DG) GetDRdWFiniteDifferences(eps float64) *linalg.SparseMatrix {
	return dg.finiteDifferences(dg.Solution, dg.GetDRdWSparsityPattern(), eps)
}

// GetDRdXFiniteDifferences approximates dR/dX by central differences on the
// dR/dX pattern. Collective.
func (dg *DG) GetDRdXFiniteDifferences(eps float64) *linalg.SparseMatrix {
	return dg.finiteDifferences(dg.VolumeNodes, dg.GetDRdXSparsityPattern(), eps)
}

// finiteDifferences perturbs every global entry of x, owned or ghosted, on
// all ranks holding it. RightHandSide is left at the unperturbed residual.
func (dg *DG) finiteDifferences(x *linalg.Vector, p *linalg.Pattern, eps float64) (fd *linalg.SparseMatrix) {
	var (
		lo, hi = dg.RightHandSide.OwnedRange()
		plus   = make([]float64, hi-lo)
	)
	fd = linalg.NewSparseMatrix(p)
	for j := 0; j < x.Part.N(); j++ {
		var (
			has = x.Has(j)
			x0  float64
		)
		if has {
			x0 = x.At(j)
			x.Set(j, x0+eps)
		}
		dg.AssembleResidual(false, false, false, 0)
		copy(plus, dg.RightHandSide.Owned())
		if has {
			x.Set(j, x0-eps)
		}
		dg.AssembleResidual(false, false, false, 0)
		if has {
			x.Set(j, x0)
		}
		for i := lo; i < hi; i++ {
			if fd.InPattern(i, j) {
				fd.Set(i, j, (plus[i-lo]-dg.RightHandSide.At(i))/(2*eps))
			}
		}
	}
	dg.AssembleResidual(false, false, false, 0)
	return
}
