// Package numflux holds the numerical fluxes that couple neighboring cells:
// convective fluxes (returned dotted with the interior normal) and the
// symmetric interior penalty treatment of dissipative terms.
package numflux

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/physics"
)

var ErrUnknownFlux = errors.New("numflux: unknown numerical flux")

type FluxType uint8

const (
	FLUX_Average FluxType = iota
	FLUX_LaxFriedrichs
)

var (
	FluxNames = map[string]FluxType{
		"average": FLUX_Average,
		"central": FLUX_Average,
		"lax":     FLUX_LaxFriedrichs,
	}
	FluxPrintNames = []string{"Average", "Lax Friedrichs"}
)

func (ft FluxType) Print() (txt string) {
	txt = FluxPrintNames[ft]
	return
}

func NewFluxType(label string) (ft FluxType, err error) {
	var ok bool
	label = strings.ToLower(label)
	if ft, ok = FluxNames[label]; !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownFlux, label)
	}
	return
}

type DissipativeType uint8

const (
	DISS_SymmetricInternalPenalty DissipativeType = iota
)

var DissipativeNames = map[string]DissipativeType{
	"sipg":                       DISS_SymmetricInternalPenalty,
	"symmetric_internal_penalty": DISS_SymmetricInternalPenalty,
}

func NewDissipativeType(label string) (dt DissipativeType, err error) {
	var ok bool
	label = strings.ToLower(label)
	if dt, ok = DissipativeNames[label]; !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownFlux, label)
	}
	return
}

// Convective returns the convective numerical flux dotted with the interior
// unit normal.
type Convective[T ad.Number[T]] interface {
	Flux(uInt, uExt, normal []T) []T
}

// Dissipative provides the two numerical fluxes of a mixed formulation: the
// face value of the solution and the face value of the dissipative flux
// dotted with the interior normal.
type Dissipative[T ad.Number[T]] interface {
	SolutionFlux(uInt, uExt []T) []T
	AuxiliaryFlux(uInt, uExt []T, gradInt, gradExt [][]T, normal []T, penalty float64) []T
}

func NewConvective[T ad.Number[T]](ft FluxType, pde physics.PDE[T]) (Convective[T], error) {
	switch ft {
	case FLUX_Average:
		return &Central[T]{pde: pde}, nil
	case FLUX_LaxFriedrichs:
		return &LaxFriedrichs[T]{pde: pde}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFlux, ft)
}

func NewDissipative[T ad.Number[T]](dt DissipativeType, pde physics.PDE[T]) (Dissipative[T], error) {
	switch dt {
	case DISS_SymmetricInternalPenalty:
		return &SymmetricInternalPenalty[T]{pde: pde}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFlux, dt)
}

func normalFlux[T ad.Number[T]](f [][]T, normal []T) (fn []T) {
	fn = make([]T, len(f))
	for s := range f {
		fn[s] = physics.Dot(f[s], normal)
	}
	return
}

// Central is the average of the two physical fluxes.
type Central[T ad.Number[T]] struct {
	pde physics.PDE[T]
}

func (c *Central[T]) Flux(uInt, uExt, normal []T) (f []T) {
	var (
		fI = normalFlux(c.pde.ConvectiveFlux(uInt), normal)
		fE = normalFlux(c.pde.ConvectiveFlux(uExt), normal)
	)
	f = make([]T, len(fI))
	for s := range f {
		f[s] = fI[s].Add(fE[s]).MulF(0.5)
	}
	return
}

// LaxFriedrichs adds a jump dissipation scaled by the largest wave speed of
// the two states.
type LaxFriedrichs[T ad.Number[T]] struct {
	pde physics.PDE[T]
}

func (lf *LaxFriedrichs[T]) Flux(uInt, uExt, normal []T) (f []T) {
	var (
		fI     = normalFlux(lf.pde.ConvectiveFlux(uInt), normal)
		fE     = normalFlux(lf.pde.ConvectiveFlux(uExt), normal)
		maxEig = ad.Max(lf.pde.MaxConvectiveEigenvalue(uInt), lf.pde.MaxConvectiveEigenvalue(uExt))
	)
	f = make([]T, len(fI))
	for s := range f {
		f[s] = fI[s].Add(fE[s]).Sub(maxEig.Mul(uExt[s].Sub(uInt[s]))).MulF(0.5)
	}
	return
}

// SymmetricInternalPenalty is the SIPG treatment of dissipative terms.
type SymmetricInternalPenalty[T ad.Number[T]] struct {
	pde physics.PDE[T]
}

// SolutionFlux is the average of the two traces.
func (sip *SymmetricInternalPenalty[T]) SolutionFlux(uInt, uExt []T) (u []T) {
	u = make([]T, len(uInt))
	for s := range u {
		u[s] = uInt[s].Add(uExt[s]).MulF(0.5)
	}
	return
}

// AuxiliaryFlux is ({F_d} - penalty*F_d({u}, [u] x n)) . n
func (sip *SymmetricInternalPenalty[T]) AuxiliaryFlux(uInt, uExt []T, gradInt, gradExt [][]T,
	normal []T, penalty float64) (f []T) {
	var (
		dim   = len(normal)
		fI    = sip.pde.DissipativeFlux(uInt, gradInt)
		fE    = sip.pde.DissipativeFlux(uExt, gradExt)
		uAvg  = sip.SolutionFlux(uInt, uExt)
		jumpN = make([][]T, len(uInt))
	)
	for s := range jumpN {
		jumpN[s] = make([]T, dim)
		jump := uInt[s].Sub(uExt[s])
		for d := 0; d < dim; d++ {
			jumpN[s][d] = jump.Mul(normal[d])
		}
	}
	fJ := sip.pde.DissipativeFlux(uAvg, jumpN)
	f = make([]T, len(uInt))
	for s := range f {
		flux := make([]T, dim)
		for d := 0; d < dim; d++ {
			flux[d] = fI[s][d].Add(fE[s][d]).MulF(0.5).Sub(fJ[s][d].MulF(penalty))
		}
		f[s] = physics.Dot(flux, normal)
	}
	return
}
