package dg

import (
	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/basis"
)

// geometry is the multilinear map of a cell evaluated at one reference
// point. Every quantity is in the assembly scalar so node derivatives flow
// through it.
type geometry[T ad.Number[T]] struct {
	X   []T   // Physical point
	Jac [][]T // dx_d/dxi_r, [d][r]
	Det T
	Inv [][]T // dxi_r/dx_d, [r][d]
}

// shapeFunctions are the multilinear vertex weights and their reference
// gradients, [v] and [v][r].
func shapeFunctions(dim int, xi []float64) (n []float64, dn [][]float64) {
	nv := 1 << dim
	n = make([]float64, nv)
	dn = make([][]float64, nv)
	for v := 0; v < nv; v++ {
		dn[v] = make([]float64, dim)
		n[v] = 1
		for d := 0; d < dim; d++ {
			n[v] *= 0.5 * (1 + vertexSign(v, d)*xi[d])
		}
		for r := 0; r < dim; r++ {
			g := 1.
			for d := 0; d < dim; d++ {
				if d == r {
					g *= 0.5 * vertexSign(v, d)
				} else {
					g *= 0.5 * (1 + vertexSign(v, d)*xi[d])
				}
			}
			dn[v][r] = g
		}
	}
	return
}

func vertexSign(v, d int) float64 {
	if (v>>d)&1 == 1 {
		return 1
	}
	return -1
}

// evalGeometry maps xi through the cell with vertex coordinates X, [v][d].
func evalGeometry[T ad.Number[T]](dim int, X [][]T, xi []float64) (g geometry[T]) {
	var (
		n, dn = shapeFunctions(dim, xi)
		zero  = X[0][0].Const(0)
	)
	g.X = make([]T, dim)
	g.Jac = make([][]T, dim)
	for d := 0; d < dim; d++ {
		g.X[d] = zero
		g.Jac[d] = make([]T, dim)
		for r := 0; r < dim; r++ {
			g.Jac[d][r] = zero
		}
		for v := range X {
			g.X[d] = g.X[d].Add(X[v][d].MulF(n[v]))
			for r := 0; r < dim; r++ {
				g.Jac[d][r] = g.Jac[d][r].Add(X[v][d].MulF(dn[v][r]))
			}
		}
	}
	g.Det, g.Inv = invert(g.Jac)
	return
}

// invert returns the determinant and the inverse of a 1x1, 2x2 or 3x3
// matrix.
func invert[T ad.Number[T]](J [][]T) (det T, inv [][]T) {
	dim := len(J)
	inv = make([][]T, dim)
	for r := range inv {
		inv[r] = make([]T, dim)
	}
	switch dim {
	case 1:
		det = J[0][0]
		inv[0][0] = det.Const(1).Div(det)
	case 2:
		det = J[0][0].Mul(J[1][1]).Sub(J[0][1].Mul(J[1][0]))
		inv[0][0] = J[1][1].Div(det)
		inv[0][1] = J[0][1].Neg().Div(det)
		inv[1][0] = J[1][0].Neg().Div(det)
		inv[1][1] = J[0][0].Div(det)
	case 3:
		cof := func(a, b, c, d int) T {
			return J[a][b].Mul(J[c][d])
		}
		c00 := cof(1, 1, 2, 2).Sub(cof(1, 2, 2, 1))
		c01 := cof(1, 2, 2, 0).Sub(cof(1, 0, 2, 2))
		c02 := cof(1, 0, 2, 1).Sub(cof(1, 1, 2, 0))
		det = J[0][0].Mul(c00).Add(J[0][1].Mul(c01)).Add(J[0][2].Mul(c02))
		inv[0][0] = c00.Div(det)
		inv[1][0] = c01.Div(det)
		inv[2][0] = c02.Div(det)
		inv[0][1] = cof(0, 2, 2, 1).Sub(cof(0, 1, 2, 2)).Div(det)
		inv[1][1] = cof(0, 0, 2, 2).Sub(cof(0, 2, 2, 0)).Div(det)
		inv[2][1] = cof(0, 1, 2, 0).Sub(cof(0, 0, 2, 1)).Div(det)
		inv[0][2] = cof(0, 1, 1, 2).Sub(cof(0, 2, 1, 1)).Div(det)
		inv[1][2] = cof(0, 2, 1, 0).Sub(cof(0, 0, 1, 2)).Div(det)
		inv[2][2] = cof(0, 0, 1, 1).Sub(cof(0, 1, 1, 0)).Div(det)
	default:
		panic("unsupported dimension")
	}
	return
}

// areaVector is the outward normal of face scaled by the surface Jacobian,
// sign*det(J)*J^{-T} e_axis.
func (g geometry[T]) areaVector(face int) (nA []T) {
	var (
		axis = basis.FaceAxis(face)
		sd   = g.Det.MulF(basis.FaceSign(face))
	)
	nA = make([]T, len(g.X))
	for d := range nA {
		nA[d] = sd.Mul(g.Inv[axis][d])
	}
	return
}

// physicalGradients maps reference basis gradients [i][r] to physical ones
// [i][d].
func (g geometry[T]) physicalGradients(dphi [][]float64) (grad [][]T) {
	dim := len(g.X)
	grad = make([][]T, len(dphi))
	for i := range dphi {
		grad[i] = make([]T, dim)
		for d := 0; d < dim; d++ {
			acc := g.Inv[0][d].MulF(dphi[i][0])
			for r := 1; r < dim; r++ {
				acc = acc.Add(g.Inv[r][d].MulF(dphi[i][r]))
			}
			grad[i][d] = acc
		}
	}
	return
}
