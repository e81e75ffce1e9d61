// Package mesh is a forest of Cartesian cells with one level hanging faces.
// Cells are refined isotropically and the forest is kept 2:1 balanced across
// faces.
package mesh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/dgad/utils"
)

const MaxLevel = 16

var (
	ErrUnbalanced = errors.New("mesh: refinement would break 2:1 face balance")
	ErrMaxLevel   = errors.New("mesh: maximum refinement level reached")
	ErrInactive   = errors.New("mesh: cell is not active")
	ErrInvalid    = errors.New("mesh: invalid mesh definition")
)

type Cell struct {
	ID       int
	Level    int
	Coords   [3]int // Integer position among the cells of its level
	Parent   int    // -1 for root cells
	Children []int  // Empty for active cells
	Vertices []int  // Bit d of the local vertex index is the upper side along axis d
	Rank     int
}

func (c *Cell) Active() bool { return len(c.Children) == 0 }

type cellKey struct {
	level  int
	coords [3]int
}

type Mesh struct {
	Dim          int
	NRoot        [3]int
	Lower, Upper [3]float64
	Cells        []*Cell
	Vertices     [][]float64
	NRanks       int
	vertexKeys   map[[3]int]int
	cellKeys     map[cellKey]int
	warp         func(x []float64)
	active       []int
}

// NewCartesian builds the box [lower,upper] split into n[d] root cells along
// each axis.
func NewCartesian(dim int, n []int, lower, upper []float64) (m *Mesh, err error) {
	if dim < 1 || dim > 3 || len(n) < dim || len(lower) < dim || len(upper) < dim {
		return nil, fmt.Errorf("%w: dim %d with %d divisions", ErrInvalid, dim, len(n))
	}
	m = &Mesh{
		Dim:        dim,
		NRanks:     1,
		vertexKeys: make(map[[3]int]int),
		cellKeys:   make(map[cellKey]int),
	}
	for d := 0; d < 3; d++ {
		m.NRoot[d] = 1
	}
	for d := 0; d < dim; d++ {
		if n[d] < 1 || upper[d] <= lower[d] {
			return nil, fmt.Errorf("%w: axis %d has %d cells over [%g,%g]",
				ErrInvalid, d, n[d], lower[d], upper[d])
		}
		m.NRoot[d], m.Lower[d], m.Upper[d] = n[d], lower[d], upper[d]
	}
	for k := 0; k < m.NRoot[2]; k++ {
		for j := 0; j < m.NRoot[1]; j++ {
			for i := 0; i < m.NRoot[0]; i++ {
				m.addCell(0, [3]int{i, j, k}, -1)
			}
		}
	}
	return
}

func (m *Mesh) addCell(level int, coords [3]int, parent int) *Cell {
	c := &Cell{
		ID:       len(m.Cells),
		Level:    level,
		Coords:   coords,
		Parent:   parent,
		Vertices: make([]int, 1<<m.Dim),
	}
	for v := range c.Vertices {
		var key [3]int
		for d := 0; d < m.Dim; d++ {
			key[d] = (coords[d] + (v>>d)&1) << (MaxLevel - level)
		}
		c.Vertices[v] = m.vertex(key)
	}
	m.Cells = append(m.Cells, c)
	m.cellKeys[cellKey{level, coords}] = c.ID
	m.active = nil
	return c
}

func (m *Mesh) vertex(key [3]int) (id int) {
	var ok bool
	if id, ok = m.vertexKeys[key]; ok {
		return
	}
	x := make([]float64, m.Dim)
	for d := 0; d < m.Dim; d++ {
		frac := float64(key[d]) / float64(m.NRoot[d]<<MaxLevel)
		x[d] = m.Lower[d] + (m.Upper[d]-m.Lower[d])*frac
	}
	if m.warp != nil {
		m.warp(x)
	}
	id = len(m.Vertices)
	m.Vertices = append(m.Vertices, x)
	m.vertexKeys[key] = id
	return
}

// Warp moves every vertex through f, which updates its argument in place.
// Vertices created by later refinements are warped as well.
func (m *Mesh) Warp(f func(x []float64)) {
	for _, x := range m.Vertices {
		f(x)
	}
	m.warp = f
}

// Refine splits an active cell into 2^Dim children.
func (m *Mesh) Refine(id int) (err error) {
	c := m.Cells[id]
	if !c.Active() {
		return fmt.Errorf("%w: cell %d", ErrInactive, id)
	}
	if c.Level == MaxLevel {
		return fmt.Errorf("%w: cell %d", ErrMaxLevel, id)
	}
	for face := 0; face < 2*m.Dim; face++ {
		if m.Neighbor(id, face).Kind == Coarser {
			return fmt.Errorf("%w: cell %d, face %d", ErrUnbalanced, id, face)
		}
	}
	for child := 0; child < 1<<m.Dim; child++ {
		var coords [3]int
		for d := 0; d < m.Dim; d++ {
			coords[d] = 2*c.Coords[d] + (child>>d)&1
		}
		ch := m.addCell(c.Level+1, coords, id)
		ch.Rank = c.Rank
		c.Children = append(c.Children, ch.ID)
	}
	return
}

// RefineGlobal refines every active cell once.
func (m *Mesh) RefineGlobal() (err error) {
	return m.refineAll(m.ActiveCells())
}

// refineAll refines cells coarsest first so a balanced mesh stays balanced.
func (m *Mesh) refineAll(cells []int) (err error) {
	sorted := make([]int, len(cells))
	copy(sorted, cells)
	sort.SliceStable(sorted, func(i, j int) bool {
		return m.Cells[sorted[i]].Level < m.Cells[sorted[j]].Level
	})
	for _, id := range sorted {
		if err = m.Refine(id); err != nil {
			return
		}
	}
	return
}

// RefineBox refines the active cells whose center lies inside [lower,upper].
func (m *Mesh) RefineBox(lower, upper []float64) (err error) {
	var cells []int
	for _, id := range m.ActiveCells() {
		ctr := m.CellCenter(id)
		inside := true
		for d := 0; d < m.Dim; d++ {
			if ctr[d] < lower[d]-utils.NODETOL || ctr[d] > upper[d]+utils.NODETOL {
				inside = false
			}
		}
		if inside {
			cells = append(cells, id)
		}
	}
	return m.refineAll(cells)
}

// ActiveCells lists the active cells in depth first order over the roots.
func (m *Mesh) ActiveCells() []int {
	if m.active != nil {
		return m.active
	}
	var walk func(id int)
	walk = func(id int) {
		c := m.Cells[id]
		if c.Active() {
			m.active = append(m.active, id)
			return
		}
		for _, ch := range c.Children {
			walk(ch)
		}
	}
	m.active = make([]int, 0, len(m.Cells))
	for _, c := range m.Cells {
		if c.Parent == -1 {
			walk(c.ID)
		}
	}
	return m.active
}

// Partition assigns contiguous runs of active cells to nRanks ranks.
func (m *Mesh) Partition(nRanks int) {
	var (
		active = m.ActiveCells()
		pm     = utils.NewPartitionMap(nRanks, len(active))
	)
	m.NRanks = nRanks
	for i, id := range active {
		bn, _, _ := pm.GetBucket(i)
		m.Cells[id].Rank = bn
	}
}

// CellsOfRank lists the active cells owned by rank in traversal order.
func (m *Mesh) CellsOfRank(rank int) (cells []int) {
	for _, id := range m.ActiveCells() {
		if m.Cells[id].Rank == rank {
			cells = append(cells, id)
		}
	}
	return
}

func (m *Mesh) CellCenter(id int) (ctr []float64) {
	c := m.Cells[id]
	ctr = make([]float64, m.Dim)
	for _, v := range c.Vertices {
		for d := 0; d < m.Dim; d++ {
			ctr[d] += m.Vertices[v][d]
		}
	}
	for d := range ctr {
		ctr[d] /= float64(len(c.Vertices))
	}
	return
}
