package ad

// Tape records the elementary operations performed on Rad numbers so the
// adjoints can be propagated backwards. A Tape is not safe for concurrent
// use; every worker owns its own.
type Tape[T Number[T]] struct {
	nodes []radNode[T]
}

// radNode holds up to two parents (1 based ids, 0 for none) and the local
// partials with respect to them.
type radNode[T Number[T]] struct {
	a, b   int
	da, db T
}

func NewTape[T Number[T]]() *Tape[T] {
	return &Tape[T]{}
}

// Reset forgets every recorded operation. Rad values built before the reset
// must not be used afterwards.
func (t *Tape[T]) Reset() {
	t.nodes = t.nodes[:0]
}

func (t *Tape[T]) Len() int { return len(t.nodes) }

// Var registers a new independent variable.
func (t *Tape[T]) Var(v T) Rad[T] {
	t.nodes = append(t.nodes, radNode[T]{})
	return Rad[T]{V: v, id: len(t.nodes), tape: t}
}

// Gradient returns d(out)/d(w) for each w in wrt. The adjoints are of type T,
// so when T is itself a forward mode number the result also carries the
// directional derivatives of the gradient.
func (t *Tape[T]) Gradient(out Rad[T], wrt []Rad[T]) (grad []T) {
	var (
		adj     = make([]T, len(t.nodes)+1)
		touched = make([]bool, len(t.nodes)+1)
	)
	accumulate := func(id int, v T) {
		if touched[id] {
			adj[id] = adj[id].Add(v)
		} else {
			adj[id] = v
			touched[id] = true
		}
	}
	if out.id != 0 {
		accumulate(out.id, out.V.Const(1))
	}
	for i := out.id; i >= 1; i-- {
		if !touched[i] {
			continue
		}
		n := t.nodes[i-1]
		if n.a != 0 {
			accumulate(n.a, adj[i].Mul(n.da))
		}
		if n.b != 0 {
			accumulate(n.b, adj[i].Mul(n.db))
		}
	}
	grad = make([]T, len(wrt))
	for k, w := range wrt {
		if w.id != 0 && touched[w.id] {
			grad[k] = adj[w.id]
		} else {
			grad[k] = out.V.Const(0)
		}
	}
	return
}

// Rad is a reverse mode number. The zero id marks a passive constant.
type Rad[T Number[T]] struct {
	V    T
	id   int
	tape *Tape[T]
}

func (a Rad[T]) binary(b Rad[T], v, da, db T) Rad[T] {
	t := a.tape
	if t == nil {
		t = b.tape
	}
	if t == nil || (a.id == 0 && b.id == 0) {
		return Rad[T]{V: v}
	}
	t.nodes = append(t.nodes, radNode[T]{a: a.id, b: b.id, da: da, db: db})
	return Rad[T]{V: v, id: len(t.nodes), tape: t}
}

func (a Rad[T]) unary(v, da T) Rad[T] {
	if a.id == 0 {
		return Rad[T]{V: v}
	}
	a.tape.nodes = append(a.tape.nodes, radNode[T]{a: a.id, da: da})
	return Rad[T]{V: v, id: len(a.tape.nodes), tape: a.tape}
}

// Active reports whether a depends on a variable registered on a tape.
func (a Rad[T]) Active() bool { return a.id != 0 }

func (a Rad[T]) Add(b Rad[T]) Rad[T] {
	one := a.V.Const(1)
	return a.binary(b, a.V.Add(b.V), one, one)
}

func (a Rad[T]) Sub(b Rad[T]) Rad[T] {
	return a.binary(b, a.V.Sub(b.V), a.V.Const(1), a.V.Const(-1))
}

func (a Rad[T]) Mul(b Rad[T]) Rad[T] {
	return a.binary(b, a.V.Mul(b.V), b.V, a.V)
}

func (a Rad[T]) Div(b Rad[T]) Rad[T] {
	var (
		v   = a.V.Div(b.V)
		inv = b.V.Const(1).Div(b.V)
	)
	return a.binary(b, v, inv, v.Mul(inv).Neg())
}

func (a Rad[T]) Neg() Rad[T] {
	return a.unary(a.V.Neg(), a.V.Const(-1))
}

func (a Rad[T]) AddF(c float64) Rad[T] {
	return a.unary(a.V.AddF(c), a.V.Const(1))
}

func (a Rad[T]) MulF(c float64) Rad[T] {
	return a.unary(a.V.MulF(c), a.V.Const(c))
}

func (a Rad[T]) Sqrt() Rad[T] {
	s := a.V.Sqrt()
	return a.unary(s, s.Const(1).Div(s.MulF(2)))
}

func (a Rad[T]) Abs() Rad[T] {
	if a.V.Value() < 0 {
		return a.Neg()
	}
	return a
}

func (a Rad[T]) Exp() Rad[T] {
	e := a.V.Exp()
	return a.unary(e, e)
}

func (a Rad[T]) Sin() Rad[T] {
	return a.unary(a.V.Sin(), a.V.Cos())
}

func (a Rad[T]) Cos() Rad[T] {
	return a.unary(a.V.Cos(), a.V.Sin().Neg())
}

func (a Rad[T]) Const(c float64) Rad[T] {
	return Rad[T]{V: a.V.Const(c)}
}

func (a Rad[T]) Value() float64 { return a.V.Value() }
