// Package physics defines the conservation laws the residual is assembled
// for. Every model is generic over the scalar type so the same code runs in
// plain reals and in every automatic differentiation mode.
package physics

import (
	"errors"
	"fmt"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/types"
)

var (
	ErrUnknownPDE = errors.New("physics: unknown PDE type")
	ErrBadState   = errors.New("physics: state has the wrong number of components")
)

// PDE is a system of NState conservation laws in Dim dimensions. Fluxes are
// indexed [state][axis].
type PDE[T ad.Number[T]] interface {
	Dim() int
	NState() int
	ConvectiveFlux(u []T) [][]T
	// ConvectiveFluxDirectionalJacobian is d(F(u).n)/du indexed [row][col].
	ConvectiveFluxDirectionalJacobian(u, normal []T) [][]T
	MaxConvectiveEigenvalue(u []T) T
	DissipativeFlux(u []T, grad [][]T) [][]T
	SourceTerm(pos, u []T) []T
	// BoundaryFaceValues returns the exterior state and gradient imposed by
	// a boundary condition at a boundary face point.
	BoundaryFaceValues(bc types.BCFLAG, pos, normal, uInt []T, gradInt [][]T) (uExt []T, gradExt [][]T)
	ManufacturedSolution() ManufacturedSolution[T]
}

type PDEType uint8

const (
	PDE_Euler PDEType = iota
	PDE_ConvectionDiffusion
)

var PDENames = map[string]PDEType{
	"euler":                PDE_Euler,
	"convection_diffusion": PDE_ConvectionDiffusion,
	"advection":            PDE_ConvectionDiffusion,
}

func NewPDEType(label string) (pt PDEType, err error) {
	var ok bool
	if pt, ok = PDENames[label]; !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownPDE, label)
	}
	return
}

// Parameters configure every physics model.
type Parameters struct {
	Type  PDEType
	Dim   int
	Gamma float64
	Minf  float64
	Alpha float64 // Angle of attack in degrees
	// Convection diffusion
	Advection []float64
	Diffusion float64
	// Manufactured solution, one entry per state
	Manufactured ManufacturedParameters
	UseSource    bool
}

// NState is the number of conserved variables of the configured model.
func (p Parameters) NState() int {
	if p.Type == PDE_Euler {
		return p.Dim + 2
	}
	return 1
}

// Set holds one instance of the configured model per scalar type used by the
// assembly.
type Set struct {
	Params Parameters
	Real   PDE[ad.Real]
	Fad    PDE[ad.Fad1]
	FadFad PDE[ad.Fad2]
	RadFad PDE[ad.RadFad]
}

func NewSet(p Parameters) (s *Set, err error) {
	if p.Dim < 1 || p.Dim > 3 {
		return nil, fmt.Errorf("invalid dimension %d", p.Dim)
	}
	s = &Set{Params: p}
	switch p.Type {
	case PDE_Euler:
		s.Real, s.Fad, s.FadFad, s.RadFad = NewEuler[ad.Real](p), NewEuler[ad.Fad1](p),
			NewEuler[ad.Fad2](p), NewEuler[ad.RadFad](p)
	case PDE_ConvectionDiffusion:
		s.Real, s.Fad, s.FadFad, s.RadFad = NewConvectionDiffusion[ad.Real](p), NewConvectionDiffusion[ad.Fad1](p),
			NewConvectionDiffusion[ad.Fad2](p), NewConvectionDiffusion[ad.RadFad](p)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPDE, p.Type)
	}
	return
}

// For selects the instance of the model for scalar type T.
func For[T ad.Number[T]](s *Set) PDE[T] {
	var (
		zero T
		pde  any
	)
	switch any(zero).(type) {
	case ad.Real:
		pde = s.Real
	case ad.Fad1:
		pde = s.Fad
	case ad.Fad2:
		pde = s.FadFad
	case ad.RadFad:
		pde = s.RadFad
	default:
		panic(fmt.Sprintf("no physics instance for scalar type %T", zero))
	}
	return pde.(PDE[T])
}

func zeros[T ad.Number[T]](n int) (z []T) {
	var zero T
	z = make([]T, n)
	for i := range z {
		z[i] = zero.Const(0)
	}
	return
}

func zeros2[T ad.Number[T]](n, m int) (z [][]T) {
	z = make([][]T, n)
	for i := range z {
		z[i] = zeros[T](m)
	}
	return
}

// Dot of two equal length vectors.
func Dot[T ad.Number[T]](a, b []T) (d T) {
	d = a[0].Mul(b[0])
	for i := 1; i < len(a); i++ {
		d = d.Add(a[i].Mul(b[i]))
	}
	return
}
