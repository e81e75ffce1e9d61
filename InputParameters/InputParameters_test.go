package InputParameters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgad/mesh"
	"github.com/notargets/dgad/numflux"
	"github.com/notargets/dgad/physics"
	"github.com/notargets/dgad/types"
)

var testInput = []byte(`
Title: "Euler MMS"
Dimension: 2
PolynomialOrder: 2
Overintegration: 1
Form: strong
Physics: euler
ConvectiveFlux: lax
Mach: 0.3
Gamma: 1.4
CFL: 0.2
ExactTimeStepping: true
Mesh:
  Cells: [3, 2]
  Lower: [0, 0]
  Upper: [1, 2]
  RefineLevels: 1
  RefineLower: [0, 0]
  RefineUpper: [0.5, 0.5]
Ranks: 2
Threads: 3
BCs:
  xmin: Far
  ymax: Wall-top
`)

func TestParse(t *testing.T) {
	ip := NewInputParameters()
	require.NoError(t, ip.Parse(testInput))
	assert.Equal(t, "Euler MMS", ip.Title)
	assert.Equal(t, 2, ip.PolynomialOrder)
	assert.Equal(t, 1, ip.Overintegration)
	assert.Equal(t, "strong", ip.Form)
	assert.Equal(t, 0.3, ip.Minf)
	assert.True(t, ip.ExactTimeStepping)
	assert.Equal(t, []int{3, 2}, ip.Mesh.Cells)
	assert.Equal(t, 3, ip.Threads)
	// Defaults survive
	assert.Equal(t, "sipg", ip.DissipativeFlux)
	assert.Equal(t, "radfad", ip.SecondOrderAD)
	assert.True(t, ip.ManufacturedSource)
	ip.Print()

	bcs := ip.BoundaryConditions()
	assert.Equal(t, []types.BCFLAG{types.BC_Far, types.BC_Dirichlet, types.BC_Dirichlet, types.BC_Wall}, bcs)

	p, err := ip.PhysicsParameters()
	require.NoError(t, err)
	assert.Equal(t, physics.PDE_Euler, p.Type)
	assert.Equal(t, 4, p.NState())
	assert.Len(t, p.Manufactured.Offset, 4)

	m, err := ip.BuildMesh()
	require.NoError(t, err)
	// 24 cells after one global refinement, the box holds 3 of the centers
	assert.Len(t, m.ActiveCells(), 24-3+12)
	assert.Equal(t, 2, m.NRanks)
	for _, id := range m.ActiveCells() {
		assert.Contains(t, []int{0, 1}, m.Cells[id].Rank)
	}
}

func TestValidate(t *testing.T) {
	{ // Bad ranges
		ip := NewInputParameters()
		ip.Dimension = 4
		assert.True(t, errors.Is(ip.Validate(), ErrInvalidParameter))
		ip = NewInputParameters()
		ip.Threads = 0
		assert.True(t, errors.Is(ip.Validate(), ErrInvalidParameter))
		ip = NewInputParameters()
		ip.BCs = map[string]string{"left": "Wall"}
		assert.True(t, errors.Is(ip.Validate(), ErrInvalidParameter))
		ip = NewInputParameters()
		ip.BCs = map[string]string{"xmin": "Bogus"}
		assert.True(t, errors.Is(ip.Validate(), ErrInvalidParameter))
	}
	{ // Unknown names come back from the owning package
		ip := NewInputParameters()
		ip.ConvectiveFlux = "roe"
		assert.True(t, errors.Is(ip.Validate(), numflux.ErrUnknownFlux))
		ip = NewInputParameters()
		ip.Physics = "maxwell"
		assert.True(t, errors.Is(ip.Validate(), physics.ErrUnknownPDE))
	}
	{ // Manufactured solution with the wrong number of states
		ip := NewInputParameters()
		ip.Manufactured = &ManufacturedInput{Offset: []float64{1, 2}}
		_, err := ip.PhysicsParameters()
		assert.True(t, errors.Is(err, ErrInvalidParameter))
	}
	{ // Malformed YAML
		ip := NewInputParameters()
		assert.Error(t, ip.Parse([]byte("Dimension: [")))
	}
}

func TestSineWarp(t *testing.T) {
	var (
		lower = []float64{0, 0}
		upper = []float64{1, 2}
		warp  = SineWarp(2, 0.05, lower, upper)
	)
	{ // Boundary points are fixed
		x := []float64{0, 1.3}
		warp(x)
		assert.Equal(t, []float64{0, 1.3}, x)
	}
	{ // Center moves by eps times the box size
		x := []float64{0.5, 1}
		warp(x)
		assert.InDeltaSlice(t, []float64{0.55, 1.1}, x, 1.e-14)
	}
	m, err := mesh.NewCartesian(2, []int{2, 2}, lower, upper)
	require.NoError(t, err)
	m.Warp(warp)
	assert.InDeltaSlice(t, []float64{0.55, 1.1}, m.Vertices[m.Cells[0].Vertices[3]], 1.e-14)
}
