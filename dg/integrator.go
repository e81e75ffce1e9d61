package dg

import (
	"fmt"
	"strings"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/basis"
	"github.com/notargets/dgad/numflux"
	"github.com/notargets/dgad/physics"
	"github.com/notargets/dgad/types"
)

type FormType uint8

const (
	FORM_Weak FormType = iota
	FORM_Strong
)

var FormNames = map[string]FormType{
	"weak":   FORM_Weak,
	"strong": FORM_Strong,
}

func (ft FormType) String() string {
	return [...]string{"weak", "strong"}[ft]
}

func NewFormType(label string) (ft FormType, err error) {
	var ok bool
	if ft, ok = FormNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownForm, label)
	}
	return
}

// cellState is one side of an integral: a cell's reference data, solution
// coefficients (index s*NBasis+i) and vertex coordinates [v][d].
type cellState[T ad.Number[T]] struct {
	ID    int
	Table *cellTable
	W     []T
	X     [][]T
}

// evaluate returns the state and its physical gradient [s][d] from basis
// values and physical basis gradients at one point.
func (c *cellState[T]) evaluate(phi []float64, gphi [][]T) (u []T, grad [][]T) {
	var (
		nb  = len(phi)
		ns  = len(c.W) / nb
		dim = len(c.X[0])
	)
	u = make([]T, ns)
	grad = make([][]T, ns)
	for s := 0; s < ns; s++ {
		w := c.W[s*nb : (s+1)*nb]
		u[s] = w[0].MulF(phi[0])
		grad[s] = make([]T, dim)
		for d := 0; d < dim; d++ {
			grad[s][d] = w[0].Mul(gphi[0][d])
		}
		for i := 1; i < nb; i++ {
			u[s] = u[s].Add(w[i].MulF(phi[i]))
			for d := 0; d < dim; d++ {
				grad[s][d] = grad[s][d].Add(w[i].Mul(gphi[i][d]))
			}
		}
	}
	return
}

// Integrator adds the cell and face integrals of one cell, or one pair of
// cells, into their local residual blocks.
type Integrator[T ad.Number[T]] interface {
	AssembleVolume(c *cellState[T], rhs []T)
	AssembleBoundary(c *cellState[T], face int, bc types.BCFLAG, penalty float64, fq *basis.Quadrature, rhs []T)
	// AssembleFace integrates with the quadrature and geometry of side a. A
	// non negative subB places a on that subface of b's face.
	AssembleFace(a *cellState[T], faceA int, b *cellState[T], faceB, subB int, penalty float64,
		fq *basis.Quadrature, rhsA, rhsB []T)
}

func newIntegrator[T ad.Number[T]](form FormType, pde physics.PDE[T], conv numflux.Convective[T],
	diss numflux.Dissipative[T]) Integrator[T] {
	wi := &weakIntegrator[T]{dim: pde.Dim(), pde: pde, conv: conv, diss: diss}
	if form == FORM_Strong {
		return &strongIntegrator[T]{weakIntegrator: wi}
	}
	return wi
}

// weakIntegrator integrates every flux by parts.
type weakIntegrator[T ad.Number[T]] struct {
	dim  int
	pde  physics.PDE[T]
	conv numflux.Convective[T]
	diss numflux.Dissipative[T]
}

func (wi *weakIntegrator[T]) AssembleVolume(c *cellState[T], rhs []T) {
	var (
		tab = c.Table
		nb  = tab.Basis.N
	)
	for k, xi := range tab.Quad.Points {
		var (
			g     = evalGeometry(wi.dim, c.X, xi)
			gphi  = g.physicalGradients(tab.DPhi[k])
			u, du = c.evaluate(tab.Phi[k], gphi)
			fc    = wi.pde.ConvectiveFlux(u)
			fd    = wi.pde.DissipativeFlux(u, du)
			src   = wi.pde.SourceTerm(g.X, u)
			jxw   = g.Det.MulF(tab.Quad.Weights[k])
		)
		for s := range u {
			for i := 0; i < nb; i++ {
				acc := src[s].MulF(tab.Phi[k][i])
				for d := 0; d < wi.dim; d++ {
					acc = acc.Add(gphi[i][d].Mul(fc[s][d].Add(fd[s][d])))
				}
				rhs[s*nb+i] = rhs[s*nb+i].Add(acc.Mul(jxw))
			}
		}
	}
}

// facePoint holds the trace of one side at a face quadrature point.
type facePoint[T ad.Number[T]] struct {
	xi   []float64
	g    geometry[T]
	phi  []float64
	gphi [][]T
	u    []T
	du   [][]T
}

func (wi *weakIntegrator[T]) trace(c *cellState[T], face int, eta []float64) (fp facePoint[T]) {
	fp.xi = basis.FaceToCell(wi.dim, face, eta)
	fp.g = evalGeometry(wi.dim, c.X, fp.xi)
	fp.phi = c.Table.Basis.Values(fp.xi)
	fp.gphi = fp.g.physicalGradients(c.Table.Basis.Gradients(fp.xi))
	fp.u, fp.du = c.evaluate(fp.phi, fp.gphi)
	return
}

// unitNormal splits an area vector into its length and direction.
func unitNormal[T ad.Number[T]](nA []T) (area T, n []T) {
	area = nA[0].Mul(nA[0])
	for d := 1; d < len(nA); d++ {
		area = area.Add(nA[d].Mul(nA[d]))
	}
	area = area.Sqrt()
	n = make([]T, len(nA))
	for d := range n {
		n[d] = nA[d].Div(area)
	}
	return
}

// symmetricFlux is F_d(u, (uStar-u) x n), the dissipative flux of the
// trace's distance to the face value.
func (wi *weakIntegrator[T]) symmetricFlux(u, uStar, n []T) [][]T {
	jump := make([][]T, len(u))
	for s := range u {
		jump[s] = make([]T, wi.dim)
		diff := uStar[s].Sub(u[s])
		for d := 0; d < wi.dim; d++ {
			jump[s][d] = diff.Mul(n[d])
		}
	}
	return wi.pde.DissipativeFlux(u, jump)
}

// addFaceTerms adds sign*phi_i*flux_s + grad(phi_i).sym_s, times dS.
func (wi *weakIntegrator[T]) addFaceTerms(fp *facePoint[T], flux []T, sym [][]T, dS T, sign float64, rhs []T) {
	nb := len(fp.phi)
	for s := range flux {
		for i := 0; i < nb; i++ {
			acc := flux[s].MulF(sign * fp.phi[i])
			for d := 0; d < wi.dim; d++ {
				acc = acc.Add(fp.gphi[i][d].Mul(sym[s][d]))
			}
			rhs[s*nb+i] = rhs[s*nb+i].Add(acc.Mul(dS))
		}
	}
}

// numericalFlux is the convective plus dissipative flux through the face
// along the interior normal.
func (wi *weakIntegrator[T]) numericalFlux(uInt, uExt []T, duInt, duExt [][]T, n []T, penalty float64) (f []T) {
	var (
		fc = wi.conv.Flux(uInt, uExt, n)
		fd = wi.diss.AuxiliaryFlux(uInt, uExt, duInt, duExt, n, penalty)
	)
	f = make([]T, len(fc))
	for s := range f {
		f[s] = fc[s].Add(fd[s])
	}
	return
}

func (wi *weakIntegrator[T]) AssembleBoundary(c *cellState[T], face int, bc types.BCFLAG, penalty float64,
	fq *basis.Quadrature, rhs []T) {
	for k, eta := range fq.Points {
		var (
			fp         = wi.trace(c, face, eta)
			area, n    = unitNormal(fp.g.areaVector(face))
			dS         = area.MulF(fq.Weights[k])
			uExt, dExt = wi.pde.BoundaryFaceValues(bc, fp.g.X, n, fp.u, fp.du)
			flux       = wi.numericalFlux(fp.u, uExt, fp.du, dExt, n, penalty)
		)
		// The boundary data is the face value of the solution
		wi.addFaceTerms(&fp, flux, wi.symmetricFlux(fp.u, uExt, n), dS, -1, rhs)
	}
}

func (wi *weakIntegrator[T]) AssembleFace(a *cellState[T], faceA int, b *cellState[T], faceB, subB int,
	penalty float64, fq *basis.Quadrature, rhsA, rhsB []T) {
	for k, eta := range fq.Points {
		var (
			fpA     = wi.trace(a, faceA, eta)
			fpB     = wi.trace(b, faceB, subfacePoint(eta, subB))
			area, n = unitNormal(fpA.g.areaVector(faceA))
			dS      = area.MulF(fq.Weights[k])
			flux    = wi.numericalFlux(fpA.u, fpB.u, fpA.du, fpB.du, n, penalty)
			uStar   = wi.diss.SolutionFlux(fpA.u, fpB.u)
			nB      = make([]T, wi.dim)
		)
		for d := range nB {
			nB[d] = n[d].Neg()
		}
		wi.addFaceTerms(&fpA, flux, wi.symmetricFlux(fpA.u, uStar, n), dS, -1, rhsA)
		wi.addFaceTerms(&fpB, flux, wi.symmetricFlux(fpB.u, uStar, nB), dS, 1, rhsB)
	}
}

func subfacePoint(eta []float64, sub int) []float64 {
	if sub < 0 {
		return eta
	}
	return basis.FaceToSubface(eta, sub)
}
