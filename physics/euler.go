package physics

import (
	"fmt"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/types"
)

// Euler is the compressible Euler system in conservative variables
// (density, momentum, total energy) for a calorically perfect gas.
type Euler[T ad.Number[T]] struct {
	dim       int
	gam       float64
	fs        *FreeStream
	mms       ManufacturedSolution[T]
	useSource bool
}

func NewEuler[T ad.Number[T]](p Parameters) *Euler[T] {
	mp := p.Manufactured
	if len(mp.Offset) == 0 {
		mp = DefaultManufactured(PDE_Euler, p.Dim)
	}
	if len(mp.Offset) != p.Dim+2 || len(mp.Amplitude) != p.Dim+2 {
		panic(fmt.Errorf("%w: manufactured solution has %d states, need %d",
			ErrBadState, len(mp.Offset), p.Dim+2))
	}
	return &Euler[T]{
		dim:       p.Dim,
		gam:       p.Gamma,
		fs:        NewFreeStream(p.Dim, p.Minf, p.Gamma, p.Alpha),
		mms:       NewSineSolution[T](p.Dim, mp),
		useSource: p.UseSource,
	}
}

func (e *Euler[T]) Dim() int { return e.dim }

func (e *Euler[T]) NState() int { return e.dim + 2 }

func (e *Euler[T]) Gamma() float64 { return e.gam }

func (e *Euler[T]) FreeStream() *FreeStream { return e.fs }

func (e *Euler[T]) ManufacturedSolution() ManufacturedSolution[T] { return e.mms }

func (e *Euler[T]) ComputeVelocities(u []T) (vel []T) {
	vel = make([]T, e.dim)
	for d := range vel {
		vel[d] = u[1+d].Div(u[0])
	}
	return
}

func (e *Euler[T]) ComputeVelocitySquared(vel []T) T {
	return Dot(vel, vel)
}

// ComputePressure is (gamma-1)*(E - rho*|v|^2/2).
func (e *Euler[T]) ComputePressure(u []T) T {
	var (
		vel  = e.ComputeVelocities(u)
		vel2 = e.ComputeVelocitySquared(vel)
	)
	return u[e.dim+1].Sub(u[0].Mul(vel2).MulF(0.5)).MulF(e.gam - 1)
}

func (e *Euler[T]) ComputeSound(u []T) T {
	return e.ComputePressure(u).MulF(e.gam).Div(u[0]).Sqrt()
}

// ComputeEnergy returns the total energy from a primitive state
// (density, velocity, pressure).
func (e *Euler[T]) ComputeEnergy(prim []T) T {
	var (
		vel  = prim[1 : e.dim+1]
		vel2 = e.ComputeVelocitySquared(vel)
	)
	return prim[e.dim+1].MulF(1 / (e.gam - 1)).Add(prim[0].Mul(vel2).MulF(0.5))
}

func (e *Euler[T]) ConvertConservativeToPrimitive(u []T) (prim []T) {
	prim = make([]T, e.NState())
	prim[0] = u[0]
	copy(prim[1:], e.ComputeVelocities(u))
	prim[e.dim+1] = e.ComputePressure(u)
	return
}

func (e *Euler[T]) ConvertPrimitiveToConservative(prim []T) (u []T) {
	u = make([]T, e.NState())
	u[0] = prim[0]
	for d := 0; d < e.dim; d++ {
		u[1+d] = prim[0].Mul(prim[1+d])
	}
	u[e.dim+1] = e.ComputeEnergy(prim)
	return
}

func (e *Euler[T]) ConvectiveFlux(u []T) (f [][]T) {
	var (
		ns  = e.NState()
		vel = e.ComputeVelocities(u)
		p   = e.ComputePressure(u)
		H   = u[ns-1].Add(p)
	)
	f = make([][]T, ns)
	for s := range f {
		f[s] = make([]T, e.dim)
	}
	for fd := 0; fd < e.dim; fd++ {
		// Density equation
		f[0][fd] = u[1+fd]
		// Momentum equations
		for vd := 0; vd < e.dim; vd++ {
			f[1+vd][fd] = u[1+vd].Mul(vel[fd])
		}
		f[1+fd][fd] = f[1+fd][fd].Add(p)
		// Energy equation
		f[ns-1][fd] = H.Mul(vel[fd])
	}
	return
}

// ConvectiveFluxDirectionalJacobian follows Blazek, Appendix A.9.
func (e *Euler[T]) ConvectiveFluxDirectionalJacobian(u, normal []T) (jac [][]T) {
	var (
		ns   = e.NState()
		vel  = e.ComputeVelocities(u)
		vn   = Dot(vel, normal)
		vel2 = e.ComputeVelocitySquared(vel)
		phi  = vel2.MulF(0.5 * (e.gam - 1))
		E    = u[ns-1].Div(u[0])
		a1   = E.MulF(e.gam).Sub(phi)
		a2   = e.gam - 1
		a3   = e.gam - 2
	)
	jac = zeros2[T](ns, ns)
	for d := 0; d < e.dim; d++ {
		jac[0][1+d] = normal[d]
	}
	for r := 0; r < e.dim; r++ {
		jac[1+r][0] = normal[r].Mul(phi).Sub(vel[r].Mul(vn))
		for c := 0; c < e.dim; c++ {
			if r == c {
				jac[1+r][1+c] = vn.Sub(normal[r].Mul(vel[r]).MulF(a3))
			} else {
				jac[1+r][1+c] = normal[c].Mul(vel[r]).Sub(normal[r].Mul(vel[c]).MulF(a2))
			}
		}
		jac[1+r][ns-1] = normal[r].MulF(a2)
	}
	jac[ns-1][0] = vn.Mul(phi.Sub(a1))
	for d := 0; d < e.dim; d++ {
		jac[ns-1][1+d] = normal[d].Mul(a1).Sub(vel[d].Mul(vn).MulF(a2))
	}
	jac[ns-1][ns-1] = vn.MulF(e.gam)
	return
}

// ConvectiveEigenvalues are the wave speeds along a unit normal:
// vn-c, vn (dim times), vn+c.
func (e *Euler[T]) ConvectiveEigenvalues(u, normal []T) (eig []T) {
	var (
		ns = e.NState()
		vn = Dot(e.ComputeVelocities(u), normal)
		c  = e.ComputeSound(u)
	)
	eig = make([]T, ns)
	eig[0] = vn.Sub(c)
	for d := 1; d < ns-1; d++ {
		eig[d] = vn
	}
	eig[ns-1] = vn.Add(c)
	return
}

// MaxConvectiveEigenvalue is |v| + c.
func (e *Euler[T]) MaxConvectiveEigenvalue(u []T) T {
	vel := e.ComputeVelocities(u)
	return e.ComputeVelocitySquared(vel).Sqrt().Add(e.ComputeSound(u))
}

// DissipativeFlux is zero, the Euler equations carry no diffusion.
func (e *Euler[T]) DissipativeFlux(u []T, grad [][]T) [][]T {
	return zeros2[T](e.NState(), e.dim)
}

// SourceTerm is the divergence of the convective flux of the manufactured
// solution, sum_d A_d(u*) du*/dx_d.
func (e *Euler[T]) SourceTerm(pos, u []T) (src []T) {
	ns := e.NState()
	if !e.useSource {
		return zeros[T](ns)
	}
	var (
		us   = e.mms.Value(pos)
		grad = e.mms.Gradient(pos)
	)
	src = zeros[T](ns)
	for d := 0; d < e.dim; d++ {
		normal := zeros[T](e.dim)
		normal[d] = normal[d].Const(1)
		jac := e.ConvectiveFluxDirectionalJacobian(us, normal)
		for r := 0; r < ns; r++ {
			for c := 0; c < ns; c++ {
				src[r] = src[r].Add(jac[r][c].Mul(grad[c][d]))
			}
		}
	}
	return
}

func (e *Euler[T]) BoundaryFaceValues(bc types.BCFLAG, pos, normal, uInt []T,
	gradInt [][]T) (uExt []T, gradExt [][]T) {
	ns := e.NState()
	gradExt = gradInt
	switch bc {
	case types.BC_Dirichlet:
		uExt = e.mms.Value(pos)
	case types.BC_Wall, types.BC_Slip:
		// Reflect the normal momentum
		var (
			mom = uInt[1 : e.dim+1]
			mn  = Dot(mom, normal).MulF(2)
		)
		uExt = make([]T, ns)
		copy(uExt, uInt)
		for d := 0; d < e.dim; d++ {
			uExt[1+d] = uInt[1+d].Sub(mn.Mul(normal[d]))
		}
	case types.BC_Far, types.BC_In:
		uExt = ad.Consts[T](e.fs.Qinf)
	case types.BC_Out, types.BC_Neuman:
		uExt = uInt
	default:
		panic(fmt.Sprintf("unsupported boundary condition %s for the Euler equations", bc))
	}
	return
}
