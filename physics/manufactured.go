package physics

import "github.com/notargets/dgad/ad"

// ManufacturedParameters configure a product of sines per state:
// u_s(x) = Offset_s + Amplitude_s * prod_d sin(Frequency*x_d + Phase_s)
type ManufacturedParameters struct {
	Offset    []float64
	Amplitude []float64
	Frequency float64
}

// DefaultManufactured keeps density and pressure well away from zero for
// the Euler equations.
func DefaultManufactured(pt PDEType, dim int) (mp ManufacturedParameters) {
	mp.Frequency = 2
	if pt != PDE_Euler {
		mp.Offset = []float64{0}
		mp.Amplitude = []float64{1}
		return
	}
	ns := dim + 2
	mp.Offset = make([]float64, ns)
	mp.Amplitude = make([]float64, ns)
	mp.Offset[0] = 1
	for d := 0; d < dim; d++ {
		mp.Offset[1+d] = 0.3 - 0.1*float64(d)
	}
	mp.Offset[ns-1] = 2.5
	for s := range mp.Amplitude {
		mp.Amplitude[s] = 0.1
	}
	return
}

type ManufacturedSolution[T ad.Number[T]] interface {
	Value(pos []T) []T
	// Gradient is indexed [state][axis]
	Gradient(pos []T) [][]T
	Laplacian(pos []T) []T
}

type SineSolution[T ad.Number[T]] struct {
	dim    int
	params ManufacturedParameters
}

func NewSineSolution[T ad.Number[T]](dim int, mp ManufacturedParameters) *SineSolution[T] {
	return &SineSolution[T]{dim: dim, params: mp}
}

func (ss *SineSolution[T]) phase(s int) float64 { return 0.3 * float64(s+1) }

func (ss *SineSolution[T]) factors(pos []T, s int) (sn, cs []T) {
	var (
		f  = ss.params.Frequency
		ph = ss.phase(s)
	)
	sn, cs = make([]T, ss.dim), make([]T, ss.dim)
	for d := 0; d < ss.dim; d++ {
		arg := pos[d].MulF(f).AddF(ph)
		sn[d], cs[d] = arg.Sin(), arg.Cos()
	}
	return
}

func (ss *SineSolution[T]) product(sn []T) (p T) {
	p = sn[0]
	for d := 1; d < len(sn); d++ {
		p = p.Mul(sn[d])
	}
	return
}

func (ss *SineSolution[T]) Value(pos []T) (u []T) {
	u = make([]T, len(ss.params.Offset))
	for s := range u {
		sn, _ := ss.factors(pos, s)
		u[s] = ss.product(sn).MulF(ss.params.Amplitude[s]).AddF(ss.params.Offset[s])
	}
	return
}

func (ss *SineSolution[T]) Gradient(pos []T) (g [][]T) {
	g = make([][]T, len(ss.params.Offset))
	for s := range g {
		sn, cs := ss.factors(pos, s)
		g[s] = make([]T, ss.dim)
		for d := 0; d < ss.dim; d++ {
			term := cs[d]
			for e := 0; e < ss.dim; e++ {
				if e != d {
					term = term.Mul(sn[e])
				}
			}
			g[s][d] = term.MulF(ss.params.Amplitude[s] * ss.params.Frequency)
		}
	}
	return
}

func (ss *SineSolution[T]) Laplacian(pos []T) (l []T) {
	l = make([]T, len(ss.params.Offset))
	f := ss.params.Frequency
	for s := range l {
		sn, _ := ss.factors(pos, s)
		l[s] = ss.product(sn).MulF(-float64(ss.dim) * f * f * ss.params.Amplitude[s])
	}
	return
}
