package basis

import (
	"fmt"
	"math"
)

// TensorBasis is the orthonormal Legendre basis on [-1,1]^Dim with every
// one dimensional index running over 0..Degree. Basis function i has
// multi-index m with i = sum_d m_d*(Degree+1)^d.
type TensorBasis struct {
	Dim, Degree int
	N           int // Number of basis functions, (Degree+1)^Dim
}

func NewTensorBasis(dim, degree int) *TensorBasis {
	if dim < 1 || dim > 3 {
		panic(fmt.Sprintf("unsupported dimension %d", dim))
	}
	if degree < 0 {
		panic(fmt.Sprintf("invalid polynomial degree %d", degree))
	}
	n := 1
	for d := 0; d < dim; d++ {
		n *= degree + 1
	}
	return &TensorBasis{Dim: dim, Degree: degree, N: n}
}

// MultiIndex returns the one dimensional orders of basis function i.
func (tb *TensorBasis) MultiIndex(i int) (m [3]int) {
	for d := 0; d < tb.Dim; d++ {
		m[d] = i % (tb.Degree + 1)
		i /= tb.Degree + 1
	}
	return
}

func (tb *TensorBasis) tables(xi []float64) (p, dp [3][]float64) {
	for d := 0; d < tb.Dim; d++ {
		p[d] = make([]float64, tb.Degree+1)
		dp[d] = make([]float64, tb.Degree+1)
		for n := 0; n <= tb.Degree; n++ {
			p[d][n] = JacobiP(xi[d], 0, 0, n)
			dp[d][n] = GradJacobiP(xi[d], 0, 0, n)
		}
	}
	return
}

// Values evaluates every basis function at the reference point xi.
func (tb *TensorBasis) Values(xi []float64) (phi []float64) {
	p, _ := tb.tables(xi)
	phi = make([]float64, tb.N)
	for i := range phi {
		m := tb.MultiIndex(i)
		v := 1.
		for d := 0; d < tb.Dim; d++ {
			v *= p[d][m[d]]
		}
		phi[i] = v
	}
	return
}

// Gradients evaluates the reference gradient of every basis function at xi,
// indexed [i][r].
func (tb *TensorBasis) Gradients(xi []float64) (dphi [][]float64) {
	p, dp := tb.tables(xi)
	dphi = make([][]float64, tb.N)
	for i := range dphi {
		m := tb.MultiIndex(i)
		dphi[i] = make([]float64, tb.Dim)
		for r := 0; r < tb.Dim; r++ {
			v := 1.
			for d := 0; d < tb.Dim; d++ {
				if d == r {
					v *= dp[d][m[d]]
				} else {
					v *= p[d][m[d]]
				}
			}
			dphi[i][r] = v
		}
	}
	return
}

// ConstantCoefficients returns the expansion of the function 1.
func (tb *TensorBasis) ConstantCoefficients() (c []float64) {
	c = make([]float64, tb.N)
	c[0] = math.Pow(math.Sqrt2, float64(tb.Dim))
	return
}

// HighestModes lists the basis functions with at least one index equal to
// Degree.
func (tb *TensorBasis) HighestModes() (modes []int) {
	for i := 0; i < tb.N; i++ {
		m := tb.MultiIndex(i)
		for d := 0; d < tb.Dim; d++ {
			if m[d] == tb.Degree {
				modes = append(modes, i)
				break
			}
		}
	}
	return
}
