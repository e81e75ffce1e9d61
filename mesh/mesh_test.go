package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkNeighbors(t *testing.T, m *Mesh) {
	for _, id := range m.ActiveCells() {
		for face := 0; face < 2*m.Dim; face++ {
			nb := m.Neighbor(id, face)
			switch nb.Kind {
			case Same:
				back := m.Neighbor(nb.Cells[0], nb.Face)
				assert.Equal(t, Same, back.Kind)
				assert.Equal(t, []int{id}, back.Cells)
			case Finer:
				assert.Len(t, nb.Cells, 1<<(m.Dim-1))
				for i, fine := range nb.Cells {
					back := m.Neighbor(fine, nb.Face)
					assert.Equal(t, Coarser, back.Kind)
					assert.Equal(t, []int{id}, back.Cells)
					assert.Equal(t, nb.Subfaces[i], back.Subfaces[0])
					assert.Equal(t, m.Cells[id].Level+1, m.Cells[fine].Level)
				}
			case Coarser:
				assert.Equal(t, m.Cells[id].Level-1, m.Cells[nb.Cells[0]].Level)
			case Boundary:
				assert.Equal(t, face, nb.BoundaryID)
			}
		}
	}
}

func TestCartesian(t *testing.T) {
	m, err := NewCartesian(2, []int{2, 2}, []float64{0, 0}, []float64{1, 2})
	require.NoError(t, err)
	assert.Len(t, m.ActiveCells(), 4)
	assert.Len(t, m.Vertices, 9)
	assert.Equal(t, []float64{0.25, 0.5}, m.CellCenter(0))
	// Vertex ordering follows the axis bits
	c := m.Cells[3]
	assert.Equal(t, []float64{0.5, 1}, m.Vertices[c.Vertices[0]])
	assert.Equal(t, []float64{1, 1}, m.Vertices[c.Vertices[1]])
	assert.Equal(t, []float64{0.5, 2}, m.Vertices[c.Vertices[2]])
	assert.Equal(t, Boundary, m.Neighbor(0, 0).Kind)
	assert.Equal(t, Same, m.Neighbor(0, 1).Kind)
	assert.Equal(t, []int{2}, m.Neighbor(0, 3).Cells)
	checkNeighbors(t, m)

	_, err = NewCartesian(2, []int{2, 0}, []float64{0, 0}, []float64{1, 1})
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestRefine(t *testing.T) {
	m, err := NewCartesian(2, []int{2, 2}, []float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	require.NoError(t, m.Refine(0))
	assert.Len(t, m.ActiveCells(), 7)
	assert.Len(t, m.Vertices, 14)
	// Children take the place of their parent in traversal order
	assert.Equal(t, []int{4, 5, 6, 7, 1, 2, 3}, m.ActiveCells())

	nb := m.Neighbor(1, 0)
	assert.Equal(t, Finer, nb.Kind)
	assert.Equal(t, []int{5, 7}, nb.Cells)
	assert.Equal(t, []int{0, 1}, nb.Subfaces)
	nb = m.Neighbor(7, 1)
	assert.Equal(t, Coarser, nb.Kind)
	assert.Equal(t, []int{1}, nb.Cells)
	assert.Equal(t, []int{1}, nb.Subfaces)
	checkNeighbors(t, m)

	assert.True(t, errors.Is(m.Refine(0), ErrInactive))
	// Cell 5 touches coarse cell 1, a second level would break balance
	assert.True(t, errors.Is(m.Refine(5), ErrUnbalanced))
	require.NoError(t, m.Refine(4))
	checkNeighbors(t, m)
	require.NoError(t, m.RefineGlobal())
	checkNeighbors(t, m)
}

func TestRefine3D(t *testing.T) {
	m, err := NewCartesian(3, []int{1, 1, 1}, []float64{0, 0, 0}, []float64{1, 1, 1})
	require.NoError(t, err)
	require.NoError(t, m.RefineGlobal())
	require.NoError(t, m.RefineBox([]float64{0, 0, 0}, []float64{0.5, 0.5, 0.5}))
	assert.Len(t, m.ActiveCells(), 15)
	checkNeighbors(t, m)
	require.NoError(t, m.RefineGlobal())
	assert.Len(t, m.ActiveCells(), 120)
	checkNeighbors(t, m)
}

func TestPartitionAndWarp(t *testing.T) {
	m, err := NewCartesian(1, []int{7}, []float64{0}, []float64{1})
	require.NoError(t, err)
	m.Partition(2)
	assert.Len(t, m.CellsOfRank(0), 4)
	assert.Len(t, m.CellsOfRank(1), 3)
	assert.Equal(t, []int{4, 5, 6}, m.CellsOfRank(1))

	m.Warp(func(x []float64) { x[0] *= 2 })
	assert.Equal(t, []float64{2}, m.Vertices[m.Cells[6].Vertices[1]])
	require.NoError(t, m.Refine(6))
	// New vertices go through the warp as well
	mid := m.Cells[m.Cells[6].Children[0]].Vertices[1]
	assert.InDelta(t, 2*13./14., m.Vertices[mid][0], 1.e-14)
	// Children inherit the rank of their parent
	assert.Equal(t, 1, m.Cells[m.Cells[6].Children[1]].Rank)
}
