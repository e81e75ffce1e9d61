package physics

import (
	"fmt"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/types"
)

// ConvectionDiffusion is the scalar law u_t + div(a u - nu grad u) = s.
type ConvectionDiffusion[T ad.Number[T]] struct {
	dim       int
	a         []float64
	nu        float64
	mms       ManufacturedSolution[T]
	useSource bool
}

func NewConvectionDiffusion[T ad.Number[T]](p Parameters) *ConvectionDiffusion[T] {
	mp := p.Manufactured
	if len(mp.Offset) == 0 {
		mp = DefaultManufactured(PDE_ConvectionDiffusion, p.Dim)
	}
	a := make([]float64, p.Dim)
	for d := range a {
		a[d] = 1
		if d < len(p.Advection) {
			a[d] = p.Advection[d]
		}
	}
	return &ConvectionDiffusion[T]{
		dim:       p.Dim,
		a:         a,
		nu:        p.Diffusion,
		mms:       NewSineSolution[T](p.Dim, mp),
		useSource: p.UseSource,
	}
}

func (cd *ConvectionDiffusion[T]) Dim() int { return cd.dim }

func (cd *ConvectionDiffusion[T]) NState() int { return 1 }

func (cd *ConvectionDiffusion[T]) ManufacturedSolution() ManufacturedSolution[T] { return cd.mms }

func (cd *ConvectionDiffusion[T]) ConvectiveFlux(u []T) (f [][]T) {
	f = [][]T{make([]T, cd.dim)}
	for d := range f[0] {
		f[0][d] = u[0].MulF(cd.a[d])
	}
	return
}

func (cd *ConvectionDiffusion[T]) ConvectiveFluxDirectionalJacobian(u, normal []T) [][]T {
	an := normal[0].MulF(cd.a[0])
	for d := 1; d < cd.dim; d++ {
		an = an.Add(normal[d].MulF(cd.a[d]))
	}
	return [][]T{{an}}
}

func (cd *ConvectionDiffusion[T]) MaxConvectiveEigenvalue(u []T) T {
	var a2 float64
	for _, v := range cd.a {
		a2 += v * v
	}
	return u[0].Const(a2).Sqrt()
}

func (cd *ConvectionDiffusion[T]) DissipativeFlux(u []T, grad [][]T) (f [][]T) {
	f = [][]T{make([]T, cd.dim)}
	for d := range f[0] {
		f[0][d] = grad[0][d].MulF(-cd.nu)
	}
	return
}

// SourceTerm is a.grad(u*) - nu*lap(u*).
func (cd *ConvectionDiffusion[T]) SourceTerm(pos, u []T) []T {
	if !cd.useSource {
		return zeros[T](1)
	}
	var (
		grad = cd.mms.Gradient(pos)
		lap  = cd.mms.Laplacian(pos)
		src  = lap[0].MulF(-cd.nu)
	)
	for d := 0; d < cd.dim; d++ {
		src = src.Add(grad[0][d].MulF(cd.a[d]))
	}
	return []T{src}
}

func (cd *ConvectionDiffusion[T]) BoundaryFaceValues(bc types.BCFLAG, pos, normal, uInt []T,
	gradInt [][]T) (uExt []T, gradExt [][]T) {
	gradExt = gradInt
	switch bc {
	case types.BC_Dirichlet, types.BC_In, types.BC_Far:
		uExt = cd.mms.Value(pos)
	case types.BC_Out, types.BC_Neuman:
		uExt = uInt
	default:
		panic(fmt.Sprintf("unsupported boundary condition %s for convection diffusion", bc))
	}
	return
}
