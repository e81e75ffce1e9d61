package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/types"
)

func eulerParams(dim int) Parameters {
	return Parameters{
		Type:      PDE_Euler,
		Dim:       dim,
		Gamma:     1.4,
		Minf:      0.5,
		Alpha:     10,
		UseSource: true,
	}
}

func reals(v ...float64) []ad.Real { return ad.Consts[ad.Real](v) }

func normalFlux(e *Euler[ad.Real], u, n []ad.Real) (fn []float64) {
	f := e.ConvectiveFlux(u)
	fn = make([]float64, len(f))
	for s := range f {
		fn[s] = float64(Dot(f[s], n))
	}
	return
}

func TestEulerStateFunctions(t *testing.T) {
	e := NewEuler[ad.Real](eulerParams(2))
	u := reals(1.0, 0.2, 0.0, 2.5)
	p := 0.4 * (2.5 - 0.5*0.04)
	assert.InDelta(t, p, e.ComputePressure(u).Value(), 1.e-15)
	c := math.Sqrt(1.4 * p)
	assert.InDelta(t, c, e.ComputeSound(u).Value(), 1.e-15)
	assert.InDelta(t, 0.2+c, e.MaxConvectiveEigenvalue(u).Value(), 1.e-15)

	prim := e.ConvertConservativeToPrimitive(u)
	assert.InDeltaSlice(t, []float64{1, 0.2, 0, p}, ad.Values(prim), 1.e-15)
	assert.InDeltaSlice(t, ad.Values(u), ad.Values(e.ConvertPrimitiveToConservative(prim)), 1.e-15)

	eig := e.ConvectiveEigenvalues(u, reals(1, 0))
	assert.InDeltaSlice(t, []float64{0.2 - c, 0.2, 0.2, 0.2 + c}, ad.Values(eig), 1.e-15)

	// Flux along x
	f := e.ConvectiveFlux(u)
	assert.InDelta(t, 0.2, f[0][0].Value(), 1.e-15)
	assert.InDelta(t, 0.04+p, f[1][0].Value(), 1.e-15)
	assert.InDelta(t, 0., f[2][0].Value(), 1.e-15)
	assert.InDelta(t, (2.5+p)*0.2, f[3][0].Value(), 1.e-15)
	for _, row := range e.DissipativeFlux(u, nil) {
		assert.Equal(t, []float64{0, 0}, ad.Values(row))
	}
}

func TestEulerJacobianFiniteDifference(t *testing.T) {
	cases := []struct {
		dim  int
		u, n []float64
	}{
		{2, []float64{1.0, 0.2, 0.0, 2.5}, []float64{1, 0}},
		{2, []float64{1.1, 0.3, -0.2, 2.7}, []float64{0.6, 0.8}},
		{1, []float64{0.9, -0.1, 2.2}, []float64{-1}},
		{3, []float64{1.2, 0.1, 0.3, -0.4, 3.1}, []float64{0.48, 0.6, 0.64}},
	}
	for _, tc := range cases {
		var (
			e   = NewEuler[ad.Real](eulerParams(tc.dim))
			n   = reals(tc.n...)
			jac = e.ConvectiveFluxDirectionalJacobian(reals(tc.u...), n)
			eps = 1.e-6
		)
		for col := range tc.u {
			up := append([]float64{}, tc.u...)
			um := append([]float64{}, tc.u...)
			up[col] += eps
			um[col] -= eps
			fp, fm := normalFlux(e, reals(up...), n), normalFlux(e, reals(um...), n)
			for row := range tc.u {
				assert.InDelta(t, (fp[row]-fm[row])/(2*eps), jac[row][col].Value(), 1.e-8,
					"dim %d, row %d, col %d", tc.dim, row, col)
			}
		}
	}
}

func TestEulerJacobianAutomaticDifferentiation(t *testing.T) {
	var (
		e   = NewEuler[ad.Fad1](eulerParams(2))
		uv  = []float64{1.1, 0.3, -0.2, 2.7}
		u   = make([]ad.Fad1, 4)
		n   = ad.Consts[ad.Fad1]([]float64{0.6, 0.8})
		jac = NewEuler[ad.Real](eulerParams(2)).ConvectiveFluxDirectionalJacobian(reals(uv...), reals(0.6, 0.8))
	)
	for i, v := range uv {
		u[i] = ad.NewFad(ad.Real(v), 4, i)
	}
	f := e.ConvectiveFlux(u)
	for row := range f {
		fn := Dot(f[row], n)
		for col := range uv {
			assert.InDelta(t, jac[row][col].Value(), fn.Dx(col).Value(), 1.e-13)
		}
	}
}

// The manufactured source must equal the divergence of the flux of the
// manufactured solution, computed here by differentiating through the
// position.
func TestSourceTermIsFluxDivergence(t *testing.T) {
	for _, p := range []Parameters{
		eulerParams(2),
		eulerParams(3),
		{Type: PDE_ConvectionDiffusion, Dim: 2, Advection: []float64{0.7, -1.1}, Diffusion: 0.05, UseSource: true},
	} {
		set, err := NewSet(p)
		require.NoError(t, err)
		var (
			pos  = []float64{0.3, 0.55, 0.2}[:p.Dim]
			x    = make([]ad.Fad2, p.Dim)
			pdeF = set.FadFad
			pdeR = set.Real
		)
		for d, v := range pos {
			x[d] = ad.Fad2{V: ad.NewFad(ad.Real(v), p.Dim, d), D: make([]ad.Fad1, p.Dim)}
			for k := range x[d].D {
				if k == d {
					x[d].D[k] = ad.Fad1{V: 1}
				}
			}
		}
		var (
			us   = pdeF.ManufacturedSolution().Value(x)
			grad = pdeF.ManufacturedSolution().Gradient(x)
		)
		fc := pdeF.ConvectiveFlux(us)
		fd := pdeF.DissipativeFlux(us, grad)
		src := pdeR.SourceTerm(reals(pos...), nil)
		for s := range us {
			var div float64
			for d := 0; d < p.Dim; d++ {
				div += fc[s][d].Dx(d).Value() + fd[s][d].Dx(d).Value()
			}
			assert.InDelta(t, div, src[s].Value(), 1.e-12, "%v state %d", p.Type, s)
		}
	}
}

func TestManufacturedGradient(t *testing.T) {
	var (
		mp  = DefaultManufactured(PDE_Euler, 2)
		ss  = NewSineSolution[ad.Fad1](2, mp)
		x   = []ad.Fad1{ad.NewFad(ad.Real(0.2), 2, 0), ad.NewFad(ad.Real(0.7), 2, 1)}
		u   = ss.Value(x)
		g   = ss.Gradient(x)
		lap = NewSineSolution[ad.Fad2](2, mp)
	)
	for s := range u {
		for d := 0; d < 2; d++ {
			assert.InDelta(t, u[s].Dx(d).Value(), g[s][d].Value(), 1.e-14)
		}
		assert.Greater(t, u[0].Value(), 0.)
	}
	// Laplacian from second derivatives
	x2 := []ad.Fad2{
		{V: ad.NewFad(ad.Real(0.2), 2, 0), D: []ad.Fad1{{V: 1}, {V: 0}}},
		{V: ad.NewFad(ad.Real(0.7), 2, 1), D: []ad.Fad1{{V: 0}, {V: 1}}},
	}
	u2 := lap.Value(x2)
	l := lap.Laplacian(x2)
	for s := range u2 {
		assert.InDelta(t, u2[s].Dx(0).Dx(0).Value()+u2[s].Dx(1).Dx(1).Value(), l[s].Value(), 1.e-12)
	}
}

func TestBoundaryFaceValues(t *testing.T) {
	var (
		e    = NewEuler[ad.Real](eulerParams(2))
		u    = reals(1.1, 0.3, -0.2, 2.7)
		n    = reals(0.6, 0.8)
		pos  = reals(0.1, 0.9)
		grad = [][]ad.Real{reals(1, 2), reals(3, 4), reals(5, 6), reals(7, 8)}
	)
	uw, gw := e.BoundaryFaceValues(types.BC_Wall, pos, n, u, grad)
	assert.Equal(t, grad, gw)
	assert.InDelta(t, -Dot(u[1:3], n).Value(), Dot(uw[1:3], n).Value(), 1.e-15)
	assert.Equal(t, u[0], uw[0])
	assert.Equal(t, u[3], uw[3])
	// The mass flux through a wall vanishes for the averaged state
	avg := make([]ad.Real, 4)
	for s := range avg {
		avg[s] = (u[s] + uw[s]) / 2
	}
	assert.InDelta(t, 0., normalFlux(e, avg, n)[0], 1.e-15)

	ud, _ := e.BoundaryFaceValues(types.BC_Dirichlet, pos, n, u, grad)
	assert.Equal(t, e.ManufacturedSolution().Value(pos), ud)
	uf, _ := e.BoundaryFaceValues(types.BC_Far, pos, n, u, grad)
	assert.InDeltaSlice(t, e.FreeStream().Qinf, ad.Values(uf), 1.e-15)
	uo, _ := e.BoundaryFaceValues(types.BC_Out, pos, n, u, grad)
	assert.Equal(t, u, uo)
	assert.Panics(t, func() { e.BoundaryFaceValues(types.BC_None, pos, n, u, grad) })
}

func TestFreeStream(t *testing.T) {
	fs := NewFreeStream(3, 0.5, 1.4, 0)
	assert.InDelta(t, 1/1.4, fs.Pinf, 1.e-14)
	assert.InDelta(t, 1., fs.Cinf, 1.e-14)
	assert.InDelta(t, 0.5, fs.GetFlowFunction(fs.Qinf, Mach), 1.e-14)
	assert.InDelta(t, 0., fs.GetFlowFunction(fs.Qinf, PressureCoefficient), 1.e-14)
	assert.Equal(t, "Sound Speed", SoundSpeed.String())
}

func TestSet(t *testing.T) {
	set, err := NewSet(eulerParams(2))
	require.NoError(t, err)
	assert.Equal(t, 4, For[ad.Real](set).NState())
	assert.Equal(t, 4, For[ad.RadFad](set).NState())
	assert.Equal(t, 4, set.Params.NState())

	_, err = NewSet(Parameters{Type: PDEType(9), Dim: 2})
	assert.ErrorIs(t, err, ErrUnknownPDE)
	_, err = NewPDEType("navier_stokes")
	assert.ErrorIs(t, err, ErrUnknownPDE)
	pt, err := NewPDEType("advection")
	require.NoError(t, err)
	cd, err := NewSet(Parameters{Type: pt, Dim: 1, Advection: []float64{-2}})
	require.NoError(t, err)
	assert.Equal(t, 1, For[ad.Fad2](cd).NState())
	assert.Equal(t, 2., cd.Real.MaxConvectiveEigenvalue(reals(3)).Value())
}
