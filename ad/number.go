// Package ad provides the scalar types the residual kernels are written
// against: plain reals, forward mode Fad numbers (nestable), and a tape based
// reverse mode Rad number that can carry any other scalar as its value.
package ad

import "math"

// Number is the arithmetic every scalar used by the residual kernels
// supports. T is the implementing type itself.
type Number[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	AddF(float64) T
	MulF(float64) T
	Sqrt() T
	Abs() T
	Exp() T
	Sin() T
	Cos() T
	// Const returns the constant c carrying no derivative information.
	Const(c float64) T
	// Value is the innermost real value.
	Value() float64
}

type Real float64

func (a Real) Add(b Real) Real { return a + b }
func (a Real) Sub(b Real) Real { return a - b }
func (a Real) Mul(b Real) Real { return a * b }
func (a Real) Div(b Real) Real { return a / b }
func (a Real) Neg() Real { return -a }
func (a Real) AddF(c float64) Real { return a + Real(c) }
func (a Real) MulF(c float64) Real { return a * Real(c) }
func (a Real) Sqrt() Real { return Real(math.Sqrt(float64(a))) }
func (a Real) Abs() Real { return Real(math.Abs(float64(a))) }
func (a Real) Exp() Real { return Real(math.Exp(float64(a))) }
func (a Real) Sin() Real { return Real(math.Sin(float64(a))) }
func (a Real) Cos() Real { return Real(math.Cos(float64(a))) }
func (Real) Const(c float64) Real { return Real(c) }
func (a Real) Value() float64 { return float64(a) }

// Scalar types used by the assembly sweeps.
type (
	Fad1   = Fad[Real]
	Fad2   = Fad[Fad[Real]]
	RadFad = Rad[Fad[Real]]
)

// Max returns the argument with the larger value, keeping its derivatives.
func Max[T Number[T]](a, b T) T {
	if b.Value() > a.Value() {
		return b
	}
	return a
}

// Consts converts a slice of reals into constants of type T.
func Consts[T Number[T]](vals []float64) (c []T) {
	var zero T
	c = make([]T, len(vals))
	for i, v := range vals {
		c[i] = zero.Const(v)
	}
	return
}

// Values extracts the real values of a slice of scalars.
func Values[T Number[T]](a []T) (v []float64) {
	v = make([]float64, len(a))
	for i := range a {
		v[i] = a[i].Value()
	}
	return
}
