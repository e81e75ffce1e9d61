package ad

// Fad is a forward mode number: a value and its partial derivatives with
// respect to a fixed set of independent variables. A missing trailing
// derivative is zero. Fad values are immutable once built.
type Fad[T Number[T]] struct {
	V T
	D []T
}

// NewFad returns independent variable i of n with value v.
func NewFad[T Number[T]](v T, n, i int) Fad[T] {
	d := make([]T, n)
	for k := range d {
		d[k] = v.Const(0)
	}
	d[i] = v.Const(1)
	return Fad[T]{V: v, D: d}
}

// Dx returns the derivative with respect to independent variable i.
func (a Fad[T]) Dx(i int) T {
	if i < len(a.D) {
		return a.D[i]
	}
	return a.V.Const(0)
}

func (a Fad[T]) chain(v, fp T) Fad[T] {
	r := Fad[T]{V: v}
	if len(a.D) == 0 {
		return r
	}
	r.D = make([]T, len(a.D))
	for i, d := range a.D {
		r.D[i] = fp.Mul(d)
	}
	return r
}

func (a Fad[T]) Add(b Fad[T]) Fad[T] {
	r := Fad[T]{V: a.V.Add(b.V)}
	n := max(len(a.D), len(b.D))
	if n == 0 {
		return r
	}
	r.D = make([]T, n)
	for i := range r.D {
		switch {
		case i < len(a.D) && i < len(b.D):
			r.D[i] = a.D[i].Add(b.D[i])
		case i < len(a.D):
			r.D[i] = a.D[i]
		default:
			r.D[i] = b.D[i]
		}
	}
	return r
}

func (a Fad[T]) Sub(b Fad[T]) Fad[T] {
	r := Fad[T]{V: a.V.Sub(b.V)}
	n := max(len(a.D), len(b.D))
	if n == 0 {
		return r
	}
	r.D = make([]T, n)
	for i := range r.D {
		switch {
		case i < len(a.D) && i < len(b.D):
			r.D[i] = a.D[i].Sub(b.D[i])
		case i < len(a.D):
			r.D[i] = a.D[i]
		default:
			r.D[i] = b.D[i].Neg()
		}
	}
	return r
}

func (a Fad[T]) Mul(b Fad[T]) Fad[T] {
	r := Fad[T]{V: a.V.Mul(b.V)}
	n := max(len(a.D), len(b.D))
	if n == 0 {
		return r
	}
	r.D = make([]T, n)
	for i := range r.D {
		switch {
		case i < len(a.D) && i < len(b.D):
			r.D[i] = a.D[i].Mul(b.V).Add(a.V.Mul(b.D[i]))
		case i < len(a.D):
			r.D[i] = a.D[i].Mul(b.V)
		default:
			r.D[i] = a.V.Mul(b.D[i])
		}
	}
	return r
}

func (a Fad[T]) Div(b Fad[T]) Fad[T] {
	v := a.V.Div(b.V)
	r := Fad[T]{V: v}
	n := max(len(a.D), len(b.D))
	if n == 0 {
		return r
	}
	r.D = make([]T, n)
	for i := range r.D {
		switch {
		case i < len(a.D) && i < len(b.D):
			r.D[i] = a.D[i].Sub(v.Mul(b.D[i])).Div(b.V)
		case i < len(a.D):
			r.D[i] = a.D[i].Div(b.V)
		default:
			r.D[i] = v.Mul(b.D[i]).Div(b.V).Neg()
		}
	}
	return r
}

func (a Fad[T]) Neg() Fad[T] {
	r := Fad[T]{V: a.V.Neg()}
	if len(a.D) == 0 {
		return r
	}
	r.D = make([]T, len(a.D))
	for i, d := range a.D {
		r.D[i] = d.Neg()
	}
	return r
}

func (a Fad[T]) AddF(c float64) Fad[T] {
	return Fad[T]{V: a.V.AddF(c), D: a.D}
}

func (a Fad[T]) MulF(c float64) Fad[T] {
	r := Fad[T]{V: a.V.MulF(c)}
	if len(a.D) == 0 {
		return r
	}
	r.D = make([]T, len(a.D))
	for i, d := range a.D {
		r.D[i] = d.MulF(c)
	}
	return r
}

func (a Fad[T]) Sqrt() Fad[T] {
	s := a.V.Sqrt()
	return a.chain(s, s.Const(1).Div(s.MulF(2)))
}

func (a Fad[T]) Abs() Fad[T] {
	if a.V.Value() < 0 {
		return a.Neg()
	}
	return a
}

func (a Fad[T]) Exp() Fad[T] {
	e := a.V.Exp()
	return a.chain(e, e)
}

func (a Fad[T]) Sin() Fad[T] {
	return a.chain(a.V.Sin(), a.V.Cos())
}

func (a Fad[T]) Cos() Fad[T] {
	return a.chain(a.V.Cos(), a.V.Sin().Neg())
}

func (a Fad[T]) Const(c float64) Fad[T] {
	return Fad[T]{V: a.V.Const(c)}
}

func (a Fad[T]) Value() float64 { return a.V.Value() }
