// Package dofs numbers the solution and geometry unknowns of a mesh. Solution
// unknowns are cell local (state major, basis minor). Geometry unknowns are
// the vertex coordinates, shared by every cell touching the vertex.
package dofs

import (
	"fmt"
	"sort"

	"github.com/notargets/dgad/linalg"
	"github.com/notargets/dgad/mesh"
)

type Handler struct {
	Mesh          *mesh.Mesh
	NState        int
	Rank          int
	Dofs, Nodes   linalg.Partitioning
	defaultDegree int
	degree        map[int]int
	cellStart     map[int]int
	vertexStart   map[int]int
	vertexOwner   map[int]int
	locals        []int
	ghostCells    []int
}

func NewHandler(m *mesh.Mesh, nState, degree, rank int) (h *Handler) {
	h = &Handler{
		Mesh:          m,
		NState:        nState,
		Rank:          rank,
		defaultDegree: degree,
		degree:        make(map[int]int),
	}
	h.Distribute()
	return
}

// Degree of a cell; cells inherit the degree of their closest ancestor.
func (h *Handler) Degree(id int) int {
	for id >= 0 {
		if p, ok := h.degree[id]; ok {
			return p
		}
		id = h.Mesh.Cells[id].Parent
	}
	return h.defaultDegree
}

// SetDegree changes one cell's degree. Distribute must be called afterwards.
func (h *Handler) SetDegree(id, p int) {
	if p < 0 {
		panic(fmt.Sprintf("invalid polynomial degree %d", p))
	}
	h.degree[id] = p
}

// SetAllDegrees resets every cell to degree p. Distribute must be called
// afterwards.
func (h *Handler) SetAllDegrees(p int) {
	if p < 0 {
		panic(fmt.Sprintf("invalid polynomial degree %d", p))
	}
	h.defaultDegree = p
	clear(h.degree)
}

func (h *Handler) MaxDegree() (p int) {
	for _, id := range h.Mesh.ActiveCells() {
		p = max(p, h.Degree(id))
	}
	return
}

func (h *Handler) NBasis(id int) (n int) {
	n = 1
	for d := 0; d < h.Mesh.Dim; d++ {
		n *= h.Degree(id) + 1
	}
	return
}

// Distribute numbers all unknowns for the current mesh, partition and
// degrees.
func (h *Handler) Distribute() {
	var (
		m       = h.Mesh
		nRanks  = m.NRanks
		active  = m.ActiveCells()
		counts  = make([]int, nRanks)
		ncounts = make([]int, nRanks)
	)
	h.cellStart = make(map[int]int, len(active))
	h.vertexStart = make(map[int]int)
	h.vertexOwner = make(map[int]int)
	h.locals = nil

	// Cells by rank, then traversal order
	byRank := make([][]int, nRanks)
	for _, id := range active {
		r := m.Cells[id].Rank
		byRank[r] = append(byRank[r], id)
		for _, v := range m.Cells[id].Vertices {
			if o, ok := h.vertexOwner[v]; !ok || r < o {
				h.vertexOwner[v] = r
			}
		}
	}
	var next, nextNode int
	for r, cells := range byRank {
		for _, id := range cells {
			h.cellStart[id] = next
			next += h.NState * h.NBasis(id)
			counts[r] += h.NState * h.NBasis(id)
			for _, v := range m.Cells[id].Vertices {
				if _, done := h.vertexStart[v]; done || h.vertexOwner[v] != r {
					continue
				}
				h.vertexStart[v] = nextNode
				nextNode += m.Dim
				ncounts[r] += m.Dim
			}
		}
	}
	h.locals = byRank[h.Rank]
	h.Dofs = linalg.NewPartitioning(counts)
	h.Nodes = linalg.NewPartitioning(ncounts)

	ghosts := make(map[int]bool)
	for _, id := range h.locals {
		for _, nid := range h.CellNeighbors(id) {
			if m.Cells[nid].Rank != h.Rank {
				ghosts[nid] = true
			}
		}
	}
	h.ghostCells = h.ghostCells[:0]
	for id := range ghosts {
		h.ghostCells = append(h.ghostCells, id)
	}
	sort.Ints(h.ghostCells)
}

// LocalCells are the active cells owned by this rank in numbering order.
func (h *Handler) LocalCells() []int { return h.locals }

// GhostCells are the cells owned elsewhere that share a face with a local
// cell.
func (h *Handler) GhostCells() []int { return h.ghostCells }

// CellNeighbors lists the distinct active cells sharing a face with id.
func (h *Handler) CellNeighbors(id int) (nbrs []int) {
	seen := make(map[int]bool)
	for face := 0; face < 2*h.Mesh.Dim; face++ {
		for _, nid := range h.Mesh.Neighbor(id, face).Cells {
			if !seen[nid] {
				seen[nid] = true
				nbrs = append(nbrs, nid)
			}
		}
	}
	return
}

// CellDofs are the global solution unknowns of a cell, index s*NBasis+i.
func (h *Handler) CellDofs(id int) (dofs []int) {
	start, ok := h.cellStart[id]
	if !ok {
		panic(fmt.Sprintf("cell %d is not active", id))
	}
	dofs = make([]int, h.NState*h.NBasis(id))
	for i := range dofs {
		dofs[i] = start + i
	}
	return
}

// CellNodeDofs are the global geometry unknowns of a cell, index v*Dim+d.
func (h *Handler) CellNodeDofs(id int) (dofs []int) {
	var (
		dim   = h.Mesh.Dim
		verts = h.Mesh.Cells[id].Vertices
	)
	dofs = make([]int, len(verts)*dim)
	for k, v := range verts {
		for d := 0; d < dim; d++ {
			dofs[k*dim+d] = h.vertexStart[v] + d
		}
	}
	return
}

// VertexOwner is the lowest rank among the cells touching vertex v.
func (h *Handler) VertexOwner(v int) int { return h.vertexOwner[v] }

// GhostDofs are the solution unknowns of the ghost cells.
func (h *Handler) GhostDofs() (g []int) {
	for _, id := range h.ghostCells {
		g = append(g, h.CellDofs(id)...)
	}
	return
}

// GhostNodeDofs are the geometry unknowns of local and ghost cells that are
// owned elsewhere.
func (h *Handler) GhostNodeDofs() (g []int) {
	lo, hi := h.Nodes.Range(h.Rank)
	seen := make(map[int]bool)
	for _, cells := range [][]int{h.locals, h.ghostCells} {
		for _, id := range cells {
			for _, n := range h.CellNodeDofs(id) {
				if (n < lo || n >= hi) && !seen[n] {
					seen[n] = true
					g = append(g, n)
				}
			}
		}
	}
	sort.Ints(g)
	return
}

// VertexNodeDofs are the geometry unknowns of vertex v, one per axis.
func (h *Handler) VertexNodeDofs(v int) (dofs []int) {
	dofs = make([]int, h.Mesh.Dim)
	for d := range dofs {
		dofs[d] = h.vertexStart[v] + d
	}
	return
}

// Vertices lists every vertex with a geometry unknown.
func (h *Handler) Vertices() (verts []int) {
	for v := range h.vertexStart {
		verts = append(verts, v)
	}
	sort.Ints(verts)
	return
}
