package dg

import (
	"fmt"
	"strings"

	"github.com/notargets/dgad/ad"
)

type SecondOrderType uint8

const (
	AD_RadFad SecondOrderType = iota // Reverse over forward
	AD_FadFad                        // Forward over forward
)

var SecondOrderNames = map[string]SecondOrderType{
	"radfad": AD_RadFad,
	"fadfad": AD_FadFad,
}

func (st SecondOrderType) String() string {
	return [...]string{"radfad", "fadfad"}[st]
}

func NewSecondOrderType(label string) (st SecondOrderType, err error) {
	var ok bool
	if st, ok = SecondOrderNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownSecondAD, label)
	}
	return
}

// jobResult is the local output of one job: residual rows, and when seeded
// their derivatives with respect to the seeded directions. W directions come
// before X directions.
type jobResult struct {
	rows    []int
	dirCols []int // Global column of each direction, solution or node index
	nwDir   int
	res     []float64
	jac     [][]float64 // [row][dir]
	hess    [][]float64 // d2(lambda.R), [dir][dir]
}

// scalarKit seeds the independents of a job in one scalar type and harvests
// the values and derivatives of its outputs. A kit belongs to one worker.
type scalarKit[T ad.Number[T]] interface {
	begin(nDir int)
	// variable returns value v seeded along direction dir, or a constant for
	// a negative dir.
	variable(v float64, dir int) T
	harvest(out []T, lambda []float64, r *jobResult)
}

type realKit struct{}

func (realKit) begin(int) {}

func (realKit) variable(v float64, _ int) ad.Real { return ad.Real(v) }

func (realKit) harvest(out []ad.Real, _ []float64, r *jobResult) {
	r.res = ad.Values(out)
}

type fadKit struct {
	n int
}

func (k *fadKit) begin(nDir int) { k.n = nDir }

func (k *fadKit) variable(v float64, dir int) ad.Fad1 {
	if dir < 0 {
		return ad.Fad1{V: ad.Real(v)}
	}
	return ad.NewFad(ad.Real(v), k.n, dir)
}

func (k *fadKit) harvest(out []ad.Fad1, _ []float64, r *jobResult) {
	r.res = ad.Values(out)
	r.jac = make([][]float64, len(out))
	for row, o := range out {
		r.jac[row] = make([]float64, k.n)
		for d := range r.jac[row] {
			r.jac[row][d] = o.Dx(d).Value()
		}
	}
}

type fadFadKit struct {
	n int
}

func (k *fadFadKit) begin(nDir int) { k.n = nDir }

func (k *fadFadKit) variable(v float64, dir int) ad.Fad2 {
	if dir < 0 {
		return ad.Fad2{V: ad.Fad1{V: ad.Real(v)}}
	}
	return ad.NewFad(ad.NewFad(ad.Real(v), k.n, dir), k.n, dir)
}

func (k *fadFadKit) harvest(out []ad.Fad2, lambda []float64, r *jobResult) {
	var zero ad.Fad2
	r.res = ad.Values(out)
	r.jac = make([][]float64, len(out))
	L := zero.Const(0)
	for row, o := range out {
		r.jac[row] = make([]float64, k.n)
		for d := range r.jac[row] {
			r.jac[row][d] = o.V.Dx(d).Value()
		}
		L = L.Add(o.MulF(lambda[row]))
	}
	r.hess = make([][]float64, k.n)
	for i := range r.hess {
		r.hess[i] = make([]float64, k.n)
		gi := L.Dx(i)
		for j := range r.hess[i] {
			r.hess[i][j] = gi.Dx(j).Value()
		}
	}
}

// radFadKit records the job on a tape of forward numbers; one reverse sweep
// of lambda.R then yields the gradient with its forward derivatives, a full
// Hessian.
type radFadKit struct {
	n    int
	tape *ad.Tape[ad.Fad1]
	vars []ad.RadFad
}

func newRadFadKit() *radFadKit {
	return &radFadKit{tape: ad.NewTape[ad.Fad1]()}
}

func (k *radFadKit) begin(nDir int) {
	k.n = nDir
	k.tape.Reset()
	k.vars = make([]ad.RadFad, nDir)
}

func (k *radFadKit) variable(v float64, dir int) ad.RadFad {
	if dir < 0 {
		return ad.RadFad{V: ad.Fad1{V: ad.Real(v)}}
	}
	k.vars[dir] = k.tape.Var(ad.NewFad(ad.Real(v), k.n, dir))
	return k.vars[dir]
}

func (k *radFadKit) harvest(out []ad.RadFad, lambda []float64, r *jobResult) {
	var zero ad.RadFad
	r.res = ad.Values(out)
	r.jac = make([][]float64, len(out))
	L := zero.Const(0)
	for row, o := range out {
		r.jac[row] = make([]float64, k.n)
		for d := range r.jac[row] {
			r.jac[row][d] = o.V.Dx(d).Value()
		}
		L = L.Add(o.MulF(lambda[row]))
	}
	grad := k.tape.Gradient(L, k.vars)
	r.hess = make([][]float64, k.n)
	for i := range r.hess {
		r.hess[i] = make([]float64, k.n)
		for j := range r.hess[i] {
			r.hess[i][j] = grad[i].Dx(j).Value()
		}
	}
}
