package basis

// Quadrature is a tensor product Gauss-Legendre rule on [-1,1]^Dim.
type Quadrature struct {
	Dim     int
	NPerDir int
	Points  [][]float64
	Weights []float64
	// One dimensional rule the tensor rule is built from
	Nodes1D, Weights1D []float64
}

// NewQuadrature returns the rule with n points per direction. A zero
// dimensional rule is a single point of weight one, used for the faces of a
// one dimensional cell.
func NewQuadrature(dim, n int) *Quadrature {
	x, w := JacobiGQ(0, 0, n-1)
	q := &Quadrature{Dim: dim, NPerDir: n, Nodes1D: x, Weights1D: w}
	total := 1
	for d := 0; d < dim; d++ {
		total *= n
	}
	q.Points = make([][]float64, total)
	q.Weights = make([]float64, total)
	for k := 0; k < total; k++ {
		var (
			pt  = make([]float64, dim)
			wt  = 1.
			idx = k
		)
		for d := 0; d < dim; d++ {
			pt[d] = x[idx%n]
			wt *= w[idx%n]
			idx /= n
		}
		q.Points[k] = pt
		q.Weights[k] = wt
	}
	return q
}

// Index returns the one dimensional index of point k along axis d.
func (q *Quadrature) Index(k, d int) int {
	for ; d > 0; d-- {
		k /= q.NPerDir
	}
	return k % q.NPerDir
}

// Stride is the distance between neighboring points along axis d.
func (q *Quadrature) Stride(d int) (s int) {
	s = 1
	for ; d > 0; d-- {
		s *= q.NPerDir
	}
	return
}

// LagrangeDerivative returns D with D[i][j] the derivative of the j'th
// Lagrange polynomial through nodes, evaluated at nodes[i].
func LagrangeDerivative(nodes []float64) (D [][]float64) {
	n := len(nodes)
	D = make([][]float64, n)
	// Barycentric weights
	bw := make([]float64, n)
	for j := range nodes {
		bw[j] = 1
		for m := range nodes {
			if m != j {
				bw[j] /= nodes[j] - nodes[m]
			}
		}
	}
	for i := range nodes {
		D[i] = make([]float64, n)
		var diag float64
		for j := range nodes {
			if i == j {
				continue
			}
			D[i][j] = bw[j] / bw[i] / (nodes[i] - nodes[j])
			diag -= D[i][j]
		}
		D[i][i] = diag
	}
	return
}

// LagrangeValues evaluates every Lagrange polynomial through nodes at x.
func LagrangeValues(nodes []float64, x float64) (l []float64) {
	l = make([]float64, len(nodes))
	for j := range nodes {
		v := 1.
		for m := range nodes {
			if m != j {
				v *= (x - nodes[m]) / (nodes[j] - nodes[m])
			}
		}
		l[j] = v
	}
	return
}
