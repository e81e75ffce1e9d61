package mesh

import (
	"fmt"

	"github.com/notargets/dgad/basis"
)

type NeighborKind uint8

const (
	Boundary NeighborKind = iota
	Same
	Finer
	Coarser
)

func (nk NeighborKind) String() string {
	return [...]string{"Boundary", "Same", "Finer", "Coarser"}[nk]
}

// FaceNeighbor describes what lies across one face of an active cell.
type FaceNeighbor struct {
	Kind NeighborKind
	// Cells across the face: one for Same and Coarser, 2^(Dim-1) for Finer
	Cells []int
	// Face of the neighbor cells that touches this face
	Face int
	// For Finer, the subface of this face covered by each neighbor. For
	// Coarser, the subface of the neighbor face covered by this cell.
	Subfaces []int
	// Boundary face number, valid for Boundary
	BoundaryID int
}

// Neighbor returns the neighbor relation of an active cell across face.
func (m *Mesh) Neighbor(id, face int) (nb FaceNeighbor) {
	var (
		c      = m.Cells[id]
		axis   = basis.FaceAxis(face)
		side   = basis.FaceSide(face)
		coords = c.Coords
	)
	nb.Face = basis.OppositeFace(face)
	coords[axis] += 2*side - 1
	if coords[axis] < 0 || coords[axis] >= m.NRoot[axis]<<c.Level {
		nb.Kind = Boundary
		nb.BoundaryID = face
		return
	}
	if nid, ok := m.cellKeys[cellKey{c.Level, coords}]; ok {
		n := m.Cells[nid]
		if n.Active() {
			nb.Kind = Same
			nb.Cells = []int{nid}
			return
		}
		// Children of n that touch this face
		nb.Kind = Finer
		for sub := 0; sub < basis.NumSubfaces(m.Dim); sub++ {
			var (
				child [3]int
				k     int
			)
			for d := 0; d < m.Dim; d++ {
				if d == axis {
					child[d] = 2*coords[d] + 1 - side
					continue
				}
				child[d] = 2*coords[d] + (sub>>k)&1
				k++
			}
			cid, ok := m.cellKeys[cellKey{c.Level + 1, child}]
			if !ok || !m.Cells[cid].Active() {
				panic(fmt.Errorf("%w: cell %d face %d", ErrUnbalanced, id, face))
			}
			nb.Cells = append(nb.Cells, cid)
			nb.Subfaces = append(nb.Subfaces, sub)
		}
		return
	}
	if c.Level > 0 {
		var parent [3]int
		for d := 0; d < m.Dim; d++ {
			parent[d] = coords[d] >> 1
		}
		if nid, ok := m.cellKeys[cellKey{c.Level - 1, parent}]; ok && m.Cells[nid].Active() {
			nb.Kind = Coarser
			nb.Cells = []int{nid}
			nb.Subfaces = []int{m.subfaceOf(c, axis)}
			return
		}
	}
	panic(fmt.Errorf("%w: cell %d face %d", ErrUnbalanced, id, face))
}

// subfaceOf is the position of c within its parent's face normal to axis.
func (m *Mesh) subfaceOf(c *Cell, axis int) (sub int) {
	var k int
	for d := 0; d < m.Dim; d++ {
		if d == axis {
			continue
		}
		sub |= (c.Coords[d] & 1) << k
		k++
	}
	return
}
