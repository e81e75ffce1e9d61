package dg

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgad/InputParameters"
	"github.com/notargets/dgad/basis"
	"github.com/notargets/dgad/mesh"
	"github.com/notargets/dgad/parallel"
)

// testInput is a 2D Euler case on [0,1]^2 with 3x2 root cells.
func testInput(p int) (ip *InputParameters.InputParameters) {
	ip = InputParameters.NewInputParameters()
	ip.PolynomialOrder = p
	ip.Mesh.Cells = []int{3, 2, 2}
	return
}

// hanging refines the lower left root cell once.
func hanging(ip *InputParameters.InputParameters) *InputParameters.InputParameters {
	ip.Mesh.RefineLower = []float64{0, 0, 0}
	ip.Mesh.RefineUpper = []float64{0.3, 0.4, 0.4}
	return ip
}

func warped(ip *InputParameters.InputParameters) *InputParameters.InputParameters {
	ip.Mesh.Warp = 0.05
	return ip
}

// buildDG allocates a DG for one rank and projects the manufactured
// solution. Collective.
func buildDG(ip *InputParameters.InputParameters, c *parallel.Comm) (dg *DG, err error) {
	var m *mesh.Mesh
	if m, err = ip.BuildMesh(); err != nil {
		return
	}
	if dg, err = NewDG(ip, m, c); err != nil {
		return
	}
	dg.AllocateSystem()
	err = dg.InitializeManufacturedSolution()
	return
}

func newTestDG(t testing.TB, ip *InputParameters.InputParameters) *DG {
	dg, err := buildDG(ip, parallel.Serial())
	require.NoError(t, err)
	return dg
}

func TestNewDG(t *testing.T) {
	ip := testInput(1)
	m, err := ip.BuildMesh()
	require.NoError(t, err)

	_, err = NewDG(ip, m, parallel.NewWorld(2).Comm(0))
	assert.Error(t, err)

	ip.Form = "skew"
	_, err = NewDG(ip, m, parallel.Serial())
	assert.True(t, errors.Is(err, ErrUnknownForm))

	ip.Form = "Strong"
	ip.SecondOrderAD = "tapeless"
	_, err = NewDG(ip, m, parallel.Serial())
	assert.True(t, errors.Is(err, ErrUnknownSecondAD))

	ip.SecondOrderAD = "FadFad"
	dg, err := NewDG(ip, m, parallel.Serial())
	require.NoError(t, err)
	assert.Equal(t, FORM_Strong, dg.Form)
	assert.Equal(t, AD_FadFad, dg.SecondAD)
	assert.Equal(t, "fadfad", dg.SecondAD.String())
	assert.Equal(t, 6*4*4, dg.NDofs())

	// Derivatives need the sparsity patterns
	assert.PanicsWithError(t, ErrNoSparsityPattern.Error(), func() {
		dg.AssembleResidual(true, false, false, 0)
	})
}

func TestOwnershipPolicy(t *testing.T) {
	ip := hanging(testInput(1))
	ip.Ranks = 2
	m, err := ip.BuildMesh()
	require.NoError(t, err)
	for _, id := range m.ActiveCells() {
		for face := 0; face < basis.NumFaces(m.Dim); face++ {
			for _, nid := range m.Neighbor(id, face).Cells {
				a, b := m.Cells[id], m.Cells[nid]
				assert.NotEqual(t, CurrentCellShouldDoTheWork(a, b), CurrentCellShouldDoTheWork(b, a),
					"cells %d and %d", id, nid)
			}
		}
	}
	// Rank beats level beats index
	var (
		coarse = &mesh.Cell{ID: 5, Level: 0, Rank: 1}
		fine   = &mesh.Cell{ID: 2, Level: 1, Rank: 0}
	)
	assert.True(t, CurrentCellShouldDoTheWork(fine, coarse))
	fine.Rank = 1
	assert.True(t, CurrentCellShouldDoTheWork(coarse, fine))
	fine.Level = 0
	assert.True(t, CurrentCellShouldDoTheWork(fine, coarse))
}

// Every interior face piece is integrated by exactly one job over all
// ranks, every boundary face by exactly one boundary job.
func TestJobsCoverEveryFaceOnce(t *testing.T) {
	for _, np := range []int{1, 2, 3} {
		ip := hanging(testInput(1))
		ip.Ranks = np
		var (
			world    = parallel.NewWorld(np)
			pairs    = make(map[[2]int]int)
			bfaces   = make(map[[2]int]int)
			adjacent = make(map[[2]int]bool)
			volumes  int
		)
		for r := 0; r < np; r++ {
			m, err := ip.BuildMesh()
			require.NoError(t, err)
			dg, err := NewDG(ip, m, world.Comm(r))
			require.NoError(t, err)
			for _, jb := range dg.buildJobs() {
				switch jb.kind {
				case volumeJob:
					volumes++
				case boundaryJob:
					bfaces[[2]int{jb.a, jb.faceA}]++
				case faceJob:
					pairs[[2]int{min(jb.a, jb.b), max(jb.a, jb.b)}]++
					// Side a is never the coarser side
					assert.GreaterOrEqual(t, m.Cells[jb.a].Level, m.Cells[jb.b].Level)
					assert.Equal(t, jb.subB >= 0, m.Cells[jb.a].Level > m.Cells[jb.b].Level)
				}
			}
			if r == 0 {
				for _, id := range m.ActiveCells() {
					for face := 0; face < basis.NumFaces(m.Dim); face++ {
						nb := m.Neighbor(id, face)
						if nb.Kind == mesh.Boundary {
							adjacent[[2]int{-1 - id, face}] = true
						}
						for _, nid := range nb.Cells {
							adjacent[[2]int{min(id, nid), max(id, nid)}] = true
						}
					}
				}
				assert.Len(t, m.ActiveCells(), 5+4)
			}
		}
		assert.Equal(t, 9, volumes)
		for key := range adjacent {
			if key[0] < 0 {
				assert.Equal(t, 1, bfaces[[2]int{-1 - key[0], key[1]}], "boundary %v", key)
				continue
			}
			assert.Equal(t, 1, pairs[key], "np %d, cells %v", np, key)
		}
		assert.Equal(t, len(adjacent), len(pairs)+len(bfaces))
	}
}

func TestPenaltyScaling(t *testing.T) {
	ip := testInput(2)
	ip.Mesh.Upper = []float64{1.5, 1, 1}
	dg := newTestDG(t, ip)
	// Root cells are 0.5 x 0.5
	assert.InDelta(t, 6/0.5, dg.EvaluatePenaltyScaling(0, 0), 1.e-12)
	dg.SetAllCellsFEDegree(0)
	assert.InDelta(t, 1/0.5, dg.EvaluatePenaltyScaling(0, 3), 1.e-12)

	// Fine cells are 1/6 x 1/4 next to 1/3 x 1/2 root cells
	dg = newTestDG(t, hanging(testInput(1)))
	for _, id := range dg.DoF.LocalCells() {
		nb := dg.Mesh.Neighbor(id, 1)
		if nb.Kind != mesh.Coarser {
			continue
		}
		assert.InDelta(t, 2/(1./6), dg.EvaluatePenaltyScaling(id, 1), 1.e-12)
		assert.InDelta(t, 2/(1./4), dg.EvaluatePenaltyScaling(id, 2), 1.e-12)
		assert.InDelta(t, 0.5*(2/(1./6)+2/(1./3)), dg.facePenalty(id, 1, nb.Cells[0], nb.Face), 1.e-12)
	}
}

func TestSparsityPatterns(t *testing.T) {
	dg := newTestDG(t, hanging(testInput(1)))
	var (
		h  = dg.DoF
		nw = dg.NDofs()
		nx = h.Nodes.N()
	)
	r, c := dg.SystemMatrix.Dims()
	assert.Equal(t, [2]int{nw, nw}, [2]int{r, c})
	r, c = dg.DRdX.Dims()
	assert.Equal(t, [2]int{nw, nx}, [2]int{r, c})
	r, c = dg.D2RdXdX.Dims()
	assert.Equal(t, [2]int{nx, nx}, [2]int{r, c})
	assert.Equal(t, dg.SystemMatrix.NNZ(), dg.D2RdWdW.NNZ())
	assert.Equal(t, dg.DRdX.NNZ(), dg.D2RdWdX.NNZ())

	// Face neighbors couple, cells sharing only a vertex do not
	for _, id := range h.LocalCells() {
		in := map[int]bool{}
		for _, n := range dg.coupledCells(id) {
			in[n] = true
		}
		for _, other := range h.LocalCells() {
			assert.Equal(t, in[other], dg.SystemMatrix.InPattern(h.CellDofs(id)[0], h.CellDofs(other)[0]))
		}
	}
	// The mass pattern holds one block per state
	nb := h.NBasis(h.LocalCells()[0])
	assert.Equal(t, h.NState*nb*nb*len(h.LocalCells()), dg.GlobalMassMatrix.NNZ())
}

func TestSetDual(t *testing.T) {
	ip := testInput(1)
	ip.Ranks = 2
	err := parallel.NewWorld(2).Run(func(c *parallel.Comm) error {
		dg, err := buildDG(ip, c)
		if err != nil {
			return err
		}
		dual := dg.Dual.Clone()
		lo, hi := dual.OwnedRange()
		for i := lo; i < hi; i++ {
			dual.Set(i, float64(i))
		}
		dg.SetDual(dual)
		for _, g := range dg.Dual.Ghosts() {
			assert.Equal(t, float64(g), dg.Dual.At(g))
		}
		dg.AssembleResidual(false, false, false, 0)
		assert.False(t, math.IsNaN(dg.GetResidualL2Norm()))
		return nil
	})
	require.NoError(t, err)
}
