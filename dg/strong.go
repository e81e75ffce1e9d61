package dg

import (
	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/basis"
	"github.com/notargets/dgad/types"
)

// strongIntegrator keeps the convective divergence inside the cell. The
// convective flux is interpolated through the volume points in contravariant
// form, G_r = det(J) dxi_r/dx . F, and differentiated with the collocation
// matrix. Faces then only carry the difference between the numerical flux
// and the trace of that interpolant. Dissipative terms stay weak.
type strongIntegrator[T ad.Number[T]] struct {
	*weakIntegrator[T]
}

// contravariantFlux evaluates G at the volume points, [q][s][r].
func (si *strongIntegrator[T]) contravariantFlux(c *cellState[T]) (G [][][]T) {
	tab := c.Table
	G = make([][][]T, len(tab.Quad.Points))
	for k, xi := range tab.Quad.Points {
		var (
			g    = evalGeometry(si.dim, c.X, xi)
			u, _ = c.evaluate(tab.Phi[k], g.physicalGradients(tab.DPhi[k]))
			fc   = si.pde.ConvectiveFlux(u)
		)
		G[k] = make([][]T, len(u))
		for s := range u {
			G[k][s] = make([]T, si.dim)
			for r := 0; r < si.dim; r++ {
				acc := g.Inv[r][0].Mul(fc[s][0])
				for d := 1; d < si.dim; d++ {
					acc = acc.Add(g.Inv[r][d].Mul(fc[s][d]))
				}
				G[k][s][r] = acc.Mul(g.Det)
			}
		}
	}
	return
}

func (si *strongIntegrator[T]) AssembleVolume(c *cellState[T], rhs []T) {
	var (
		tab = c.Table
		q   = tab.Quad
		nb  = tab.Basis.N
		G   = si.contravariantFlux(c)
	)
	for k, xi := range q.Points {
		var (
			g     = evalGeometry(si.dim, c.X, xi)
			gphi  = g.physicalGradients(tab.DPhi[k])
			u, du = c.evaluate(tab.Phi[k], gphi)
			fd    = si.pde.DissipativeFlux(u, du)
			src   = si.pde.SourceTerm(g.X, u)
			jxw   = g.Det.MulF(q.Weights[k])
		)
		for s := range u {
			// Reference divergence of the interpolated flux
			div := u[s].Const(0)
			for r := 0; r < si.dim; r++ {
				var (
					ir     = q.Index(k, r)
					stride = q.Stride(r)
					base   = k - ir*stride
				)
				for j := 0; j < q.NPerDir; j++ {
					div = div.Add(G[base+j*stride][s][r].MulF(tab.D[ir][j]))
				}
			}
			div = div.MulF(q.Weights[k])
			for i := 0; i < nb; i++ {
				acc := src[s].MulF(tab.Phi[k][i])
				for d := 0; d < si.dim; d++ {
					acc = acc.Add(gphi[i][d].Mul(fd[s][d]))
				}
				rhs[s*nb+i] = rhs[s*nb+i].Add(acc.Mul(jxw)).Sub(div.MulF(tab.Phi[k][i]))
			}
		}
	}
}

// addTraceCorrection adds the face integral of phi_i G^I.n over one face
// quadrature point, in the cell's own reference coordinates. frac is the
// reference area of the point's face relative to the cell face.
func (si *strongIntegrator[T]) addTraceCorrection(c *cellState[T], G [][][]T, face int, xi []float64,
	weight float64, rhs []T) {
	var (
		q     = c.Table.Quad
		axis  = basis.FaceAxis(face)
		nb    = c.Table.Basis.N
		lag   = make([][]float64, si.dim)
		trace = make([]T, len(G[0]))
	)
	for d := 0; d < si.dim; d++ {
		lag[d] = basis.LagrangeValues(q.Nodes1D, xi[d])
	}
	for k := range G {
		l := 1.
		for d := 0; d < si.dim; d++ {
			l *= lag[d][q.Index(k, d)]
		}
		for s := range trace {
			if k == 0 {
				trace[s] = G[k][s][axis].MulF(l)
				continue
			}
			trace[s] = trace[s].Add(G[k][s][axis].MulF(l))
		}
	}
	phi := c.Table.Basis.Values(xi)
	for s := range trace {
		t := trace[s].MulF(basis.FaceSign(face) * weight)
		for i := 0; i < nb; i++ {
			rhs[s*nb+i] = rhs[s*nb+i].Add(t.MulF(phi[i]))
		}
	}
}

func (si *strongIntegrator[T]) AssembleBoundary(c *cellState[T], face int, bc types.BCFLAG, penalty float64,
	fq *basis.Quadrature, rhs []T) {
	si.weakIntegrator.AssembleBoundary(c, face, bc, penalty, fq, rhs)
	G := si.contravariantFlux(c)
	for k, eta := range fq.Points {
		si.addTraceCorrection(c, G, face, basis.FaceToCell(si.dim, face, eta), fq.Weights[k], rhs)
	}
}

func (si *strongIntegrator[T]) AssembleFace(a *cellState[T], faceA int, b *cellState[T], faceB, subB int,
	penalty float64, fq *basis.Quadrature, rhsA, rhsB []T) {
	si.weakIntegrator.AssembleFace(a, faceA, b, faceB, subB, penalty, fq, rhsA, rhsB)
	var (
		GA   = si.contravariantFlux(a)
		GB   = si.contravariantFlux(b)
		frac = 1.
	)
	if subB >= 0 {
		frac = 1. / float64(basis.NumSubfaces(si.dim))
	}
	for k, eta := range fq.Points {
		si.addTraceCorrection(a, GA, faceA, basis.FaceToCell(si.dim, faceA, eta), fq.Weights[k], rhsA)
		si.addTraceCorrection(b, GB, faceB, basis.FaceToCell(si.dim, faceB, subfacePoint(eta, subB)),
			fq.Weights[k]*frac, rhsB)
	}
}
