package dg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgad/InputParameters"
	"github.com/notargets/dgad/basis"
	"github.com/notargets/dgad/linalg"
	"github.com/notargets/dgad/parallel"
)

type testCase struct {
	name  string
	input func() *InputParameters.InputParameters
	// Raise the degree of the refined cells by one
	hp bool
}

var assemblyCases = []testCase{
	{name: "euler", input: func() *InputParameters.InputParameters {
		return warped(hanging(testInput(2)))
	}},
	{name: "euler hp", input: func() *InputParameters.InputParameters {
		ip := warped(hanging(testInput(1)))
		ip.Overintegration = 1
		return ip
	}, hp: true},
	{name: "convection diffusion", input: func() *InputParameters.InputParameters {
		ip := warped(hanging(testInput(1)))
		ip.Physics = "convection_diffusion"
		ip.Advection = []float64{1, 0.5}
		ip.Diffusion = 0.1
		return ip
	}},
}

func (tc testCase) build(t testing.TB, form string) (dg *DG) {
	ip := tc.input()
	ip.Form = form
	dg = newTestDG(t, ip)
	if tc.hp {
		raiseFineCells(t, dg)
	}
	return
}

func raiseFineCells(t testing.TB, dg *DG) {
	for _, id := range dg.Mesh.ActiveCells() {
		if dg.Mesh.Cells[id].Level > 0 {
			dg.DoF.SetDegree(id, dg.Params.PolynomialOrder+1)
		}
	}
	dg.AllocateSystem()
	require.NoError(t, dg.InitializeManufacturedSolution())
}

// stateTotals tests the residual with the constant function, per state.
// Collective.
func stateTotals(dg *DG) []float64 {
	var (
		h   = dg.DoF
		tot = make([]float64, h.NState)
	)
	for _, id := range h.LocalCells() {
		var (
			dofs = h.CellDofs(id)
			nb   = h.NBasis(id)
			c0   = basis.NewTensorBasis(dg.Mesh.Dim, h.Degree(id)).ConstantCoefficients()[0]
		)
		for s := range tot {
			tot[s] += c0 * dg.RightHandSide.At(dofs[s*nb])
		}
	}
	return dg.Comm.AllReduceSum(tot...)
}

func withoutFaceJobs(dg *DG) {
	var jobs []job
	for _, jb := range dg.jobs {
		if jb.kind != faceJob {
			jobs = append(jobs, jb)
		}
	}
	dg.jobs = jobs
	dg.ForceRecompute()
}

// Interior face contributions cancel in the sum over all cells, leaving the
// boundary fluxes and the source.
func TestConservation(t *testing.T) {
	for _, tc := range assemblyCases {
		ref := tc.build(t, "weak")
		withoutFaceJobs(ref)
		ref.AssembleResidual(false, false, false, 0)
		want := stateTotals(ref)
		for _, form := range []string{"weak", "strong"} {
			dg := tc.build(t, form)
			dg.AssembleResidual(false, false, false, 0)
			got := stateTotals(dg)
			for s := range want {
				assert.InDelta(t, want[s], got[s], 1.e-11, "%s %s state %d", tc.name, form, s)
			}
		}
	}
}

func TestWeakStrongAgree(t *testing.T) {
	for _, tc := range assemblyCases {
		var (
			weak   = tc.build(t, "weak")
			strong = tc.build(t, "strong")
		)
		weak.AssembleResidual(true, true, false, 0)
		strong.AssembleResidual(true, true, false, 0)
		assert.InDeltaSlice(t, weak.RightHandSide.Data, strong.RightHandSide.Data, 1.e-11, tc.name)
		assert.InDeltaSlice(t, weak.SystemMatrix.Data(), strong.SystemMatrix.Data(), 1.e-10, tc.name)
		assert.InDeltaSlice(t, weak.DRdX.Data(), strong.DRdX.Data(), 1.e-10, tc.name)
	}
}

func TestFreeStreamPreservation(t *testing.T) {
	for _, p := range []int{1, 2} {
		for _, form := range []string{"weak", "strong"} {
			for _, ip := range []*InputParameters.InputParameters{warped(testInput(p)), hanging(testInput(p))} {
				ip.Form = form
				ip.Threads = 2
				ip.Manufactured = &InputParameters.ManufacturedInput{Amplitude: []float64{0, 0, 0, 0}}
				dg := newTestDG(t, ip)
				dg.AssembleResidual(false, false, false, 0)
				assert.Less(t, dg.RightHandSide.LInfNorm(dg.Comm), 1.e-12, "p=%d %s", p, form)
			}
		}
	}
}

// cellMaps relate the unknowns of two numberings of the same mesh.
func cellMaps(from, to *DG) (wmap, xmap map[int]int) {
	wmap, xmap = make(map[int]int), make(map[int]int)
	for _, id := range from.Mesh.ActiveCells() {
		var (
			tw = to.DoF.CellDofs(id)
			tx = to.DoF.CellNodeDofs(id)
		)
		for k, g := range from.DoF.CellDofs(id) {
			wmap[g] = tw[k]
		}
		for k, g := range from.DoF.CellNodeDofs(id) {
			xmap[g] = tx[k]
		}
	}
	return
}

func TestParallelMatchesSerial(t *testing.T) {
	serial := newTestDG(t, warped(hanging(testInput(1))))
	serial.AssembleResidual(true, true, false, 0)
	norm := serial.GetResidualL2Norm()
	for _, np := range []int{2, 3} {
		ip := warped(hanging(testInput(1)))
		ip.Ranks = np
		ip.Threads = 2
		err := parallel.NewWorld(np).Run(func(c *parallel.Comm) error {
			dg, err := buildDG(ip, c)
			if err != nil {
				return err
			}
			dg.AssembleResidual(true, true, false, 0)
			wmap, xmap := cellMaps(dg, serial)
			lo, hi := dg.RightHandSide.OwnedRange()
			for i := lo; i < hi; i++ {
				assert.InDelta(t, serial.RightHandSide.At(wmap[i]), dg.RightHandSide.At(i), 1.e-12)
			}
			dg.SystemMatrix.Each(func(i, j int, v float64) {
				assert.InDelta(t, serial.SystemMatrix.At(wmap[i], wmap[j]), v, 1.e-11)
			})
			dg.DRdX.Each(func(i, j int, v float64) {
				assert.InDelta(t, serial.DRdX.At(wmap[i], xmap[j]), v, 1.e-11)
			})
			assert.InDelta(t, norm, dg.GetResidualL2Norm(), 1.e-12)
			return nil
		})
		require.NoError(t, err, "np %d", np)
	}
}

func setTestDual(dg *DG) {
	dual := dg.Dual.Clone()
	lo, hi := dual.OwnedRange()
	for i := lo; i < hi; i++ {
		dual.Set(i, math.Sin(float64(i)))
	}
	dg.SetDual(dual)
}

// The scatter follows the job order, so results are bitwise independent of
// the thread count.
func TestThreadsAreDeterministic(t *testing.T) {
	var (
		results [2][]*linalg.SparseMatrix
		rhs     [2][]float64
	)
	for k, threads := range []int{1, 3} {
		ip := warped(hanging(testInput(1)))
		ip.Form = "strong"
		ip.Threads = threads
		dg := newTestDG(t, ip)
		setTestDual(dg)
		dg.AssembleResidual(true, true, true, 0)
		rhs[k] = dg.RightHandSide.Data
		results[k] = []*linalg.SparseMatrix{dg.SystemMatrix, dg.DRdX, dg.D2RdWdW, dg.D2RdXdX, dg.D2RdWdX}
	}
	assert.Equal(t, rhs[0], rhs[1])
	for i := range results[0] {
		assert.True(t, results[0][i].Equal(results[1][i]), "matrix %d", i)
	}
}

func TestDerivativeCache(t *testing.T) {
	dg := newTestDG(t, hanging(testInput(1)))
	dg.AssembleResidual(false, false, false, 0)
	r0 := append([]float64(nil), dg.RightHandSide.Data...)
	dg.AssembleResidual(false, false, false, 0)
	assert.Equal(t, Stats{Residual: 1, CacheHits: 1}, dg.Stats)
	assert.Equal(t, r0, dg.RightHandSide.Data)

	dg.AssembleResidual(true, false, false, 0)
	dg.AssembleResidual(true, false, false, 0)
	dg.AssembleResidual(false, false, false, 0)
	assert.Equal(t, Stats{Residual: 1, FirstOrder: 1, CacheHits: 3}, dg.Stats)
	j0 := append([]float64(nil), dg.SystemMatrix.Data()...)

	// Only the missing product triggers a sweep
	dg.AssembleResidual(true, true, false, 0)
	assert.Equal(t, 2, dg.Stats.FirstOrder)
	dg.AssembleResidual(false, true, false, 0)
	assert.Equal(t, 4, dg.Stats.CacheHits)

	// A new mass scaling recomputes dR/dW and adds the scaled mass
	dg.AssembleResidual(true, false, false, 2)
	assert.Equal(t, 3, dg.Stats.FirstOrder)
	var pos int
	dg.SystemMatrix.Each(func(i, j int, v float64) {
		assert.InDelta(t, j0[pos]+dg.TimeScaledGlobalMassMatrix.At(i, j), v, 1.e-12)
		pos++
	})

	// A changed solution invalidates everything
	lo, _ := dg.Solution.OwnedRange()
	dg.Solution.Add(lo, 1.e-3)
	dg.AssembleResidual(false, false, false, 0)
	assert.Equal(t, 2, dg.Stats.Residual)
	assert.NotEqual(t, r0, dg.RightHandSide.Data)
	dg.AssembleResidual(true, false, false, 0)
	assert.Equal(t, 4, dg.Stats.FirstOrder)
	assert.NotEqual(t, j0, dg.SystemMatrix.Data())
	assert.Len(t, dg.SystemMatrix.Data(), len(j0))

	// Second derivatives also depend on the dual
	dg.AssembleResidual(false, false, true, 0)
	dg.AssembleResidual(false, false, true, 0)
	assert.Equal(t, 1, dg.Stats.SecondOrder)
	setTestDual(dg)
	dg.AssembleResidual(false, false, true, 0)
	assert.Equal(t, 2, dg.Stats.SecondOrder)

	// Recomputation is idempotent
	dg.ForceRecompute()
	dg.AssembleResidual(false, false, false, 0)
	r1 := append([]float64(nil), dg.RightHandSide.Data...)
	dg.ForceRecompute()
	dg.AssembleResidual(false, false, false, 0)
	assert.Equal(t, 4, dg.Stats.Residual)
	assert.Equal(t, r1, dg.RightHandSide.Data)
}

func BenchmarkAssembleResidual(b *testing.B) {
	for _, bench := range []struct {
		name            string
		dRdW, dRdX, d2R bool
		secondAD        SecondOrderType
	}{
		{name: "Residual"},
		{name: "DRdW", dRdW: true},
		{name: "DRdWDRdX", dRdW: true, dRdX: true},
		{name: "D2R RadFad", d2R: true, secondAD: AD_RadFad},
		{name: "D2R FadFad", d2R: true, secondAD: AD_FadFad},
	} {
		b.Run(bench.name, func(b *testing.B) {
			ip := warped(hanging(testInput(1)))
			ip.Threads = 4
			dg := newTestDG(b, ip)
			dg.SecondAD = bench.secondAD
			setTestDual(dg)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				dg.ForceRecompute()
				dg.AssembleResidual(bench.dRdW, bench.dRdX, bench.d2R, 0)
			}
		})
	}
}
