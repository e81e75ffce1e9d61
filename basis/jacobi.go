// Package basis holds the reference element machinery: orthonormal Legendre
// tensor product bases, Gauss quadrature and the reference face maps.
package basis

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiGQ computes the N'th order Gauss quadrature points x and weights w
// associated with the Jacobi polynomial of type (alpha, beta).
func JacobiGQ(alpha, beta float64, N int) (x, w []float64) {
	var (
		fac        float64
		h1, d0, d1 []float64
		VVr        *mat.Dense
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{2.}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)

	VVr = mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	w = make([]float64, N+1)
	g0 := gamma0(alpha, beta)
	for i, v := range VVr.RawRowView(0) {
		w[i] = v * v * g0
	}
	return
}

// JacobiP evaluates the normalized Jacobi polynomial of type (alpha, beta)
// and order N at x.
func JacobiP(x, alpha, beta float64, N int) float64 {
	var (
		rg = 1. / math.Sqrt(gamma0(alpha, beta))
		ab = alpha + beta
	)
	if N == 0 {
		return rg
	}
	rg1 := 1. / math.Sqrt(gamma1(alpha, beta))
	pm1, p := rg, rg1*((ab+2.0)*x/2.0+(alpha-beta)/2.0)
	if N == 1 {
		return p
	}
	a1 := alpha + 1.
	b1 := beta + 1.
	ab1 := ab + 1.
	aold := 2.0 * math.Sqrt(a1*b1/(ab+3.0)) / (ab + 2.0)
	for i := 0; i < N-1; i++ {
		ip1 := float64(i + 1)
		ip2 := ip1 + 1
		h1 := 2.0*ip1 + ab
		anew := 2.0 / (h1 + 2.0) * math.Sqrt(ip2*(ip1+ab1)*(ip1+a1)*(ip1+b1)/(h1+1.0)/(h1+3.0))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2.0)
		pm1, p = p, (-aold*pm1+(x-bnew)*p)/anew
		aold = anew
	}
	return p
}

// GradJacobiP evaluates the derivative of JacobiP at x.
func GradJacobiP(x, alpha, beta float64, N int) float64 {
	if N == 0 {
		return 0
	}
	fN := float64(N)
	return math.Sqrt(fN*(fN+alpha+beta+1)) * JacobiP(x, alpha+1, beta+1, N-1)
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

func gamma1(alpha, beta float64) float64 {
	ab := alpha + beta
	a1 := alpha + 1.
	b1 := beta + 1.
	return a1 * b1 * gamma0(alpha, beta) / (ab + 3.0)
}
