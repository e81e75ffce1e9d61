// Package dg assembles the discontinuous Galerkin residual of a conservation
// law and its first and dual weighted second derivatives with respect to the
// solution W and the node positions X. One generic traversal is run with a
// different scalar type per requested derivative order.
package dg

import (
	"fmt"
	"log"
	"os"

	"github.com/notargets/dgad/InputParameters"
	"github.com/notargets/dgad/dofs"
	"github.com/notargets/dgad/linalg"
	"github.com/notargets/dgad/mesh"
	"github.com/notargets/dgad/numflux"
	"github.com/notargets/dgad/parallel"
	"github.com/notargets/dgad/physics"
	"github.com/notargets/dgad/types"
)

// Stats counts the traversals run, by scalar type, and the skipped requests.
type Stats struct {
	Residual, FirstOrder, SecondOrder int
	CacheHits                         int
}

type DG struct {
	Params   *InputParameters.InputParameters
	Mesh     *mesh.Mesh
	DoF      *dofs.Handler
	Comm     *parallel.Comm
	Physics  *physics.Set
	Form     FormType
	SecondAD SecondOrderType
	Threads  int
	BCs      []types.BCFLAG // By boundary face number
	Log      *Printer
	// Distributed state, owned entries plus ghosts
	Solution, RightHandSide, Dual *linalg.Vector
	VolumeNodes                   *linalg.Vector
	// Derivatives
	SystemMatrix                *linalg.SparseMatrix // dR/dW
	DRdX                        *linalg.SparseMatrix
	D2RdWdW, D2RdXdX, D2RdWdX   *linalg.SparseMatrix
	GlobalMassMatrix            *linalg.SparseMatrix
	GlobalInverseMassMatrix     *linalg.SparseMatrix
	TimeScaledGlobalMassMatrix  *linalg.SparseMatrix
	MaxDtCell                   []float64 // By local cell
	ArtificialDissipationCoeffs []float64 // By local cell
	Stats                       Stats
	fluxType                    numflux.FluxType
	dissType                    numflux.DissipativeType
	tables                      *tables
	jobs                        []job
	cache                       derivativeCache
	allocated                   bool
}

func NewDG(ip *InputParameters.InputParameters, m *mesh.Mesh, comm *parallel.Comm) (dg *DG, err error) {
	var pp physics.Parameters
	if pp, err = ip.PhysicsParameters(); err != nil {
		return
	}
	if m.Dim != ip.Dimension {
		return nil, fmt.Errorf("mesh dimension %d does not match input dimension %d", m.Dim, ip.Dimension)
	}
	if m.NRanks != comm.Size {
		return nil, fmt.Errorf("mesh is partitioned for %d ranks, communicator has %d", m.NRanks, comm.Size)
	}
	dg = &DG{
		Params:  ip,
		Mesh:    m,
		Comm:    comm,
		Threads: max(ip.Threads, 1),
		BCs:     ip.BoundaryConditions(),
		Log:     NewPrinter(comm.Rank, ip.Verbose),
		tables:  newTables(m.Dim),
	}
	if dg.Physics, err = physics.NewSet(pp); err != nil {
		return nil, err
	}
	if dg.Form, err = NewFormType(ip.Form); err != nil {
		return nil, err
	}
	if dg.SecondAD, err = NewSecondOrderType(ip.SecondOrderAD); err != nil {
		return nil, err
	}
	if dg.fluxType, err = numflux.NewFluxType(ip.ConvectiveFlux); err != nil {
		return nil, err
	}
	if dg.dissType, err = numflux.NewDissipativeType(ip.DissipativeFlux); err != nil {
		return nil, err
	}
	dg.DoF = dofs.NewHandler(m, pp.NState(), ip.PolynomialOrder, comm.Rank)
	return
}

// NDofs is the global number of solution unknowns.
func (dg *DG) NDofs() int { return dg.DoF.Dofs.N() }

// AllocateSystem numbers the unknowns and allocates every vector and matrix
// with its sparsity pattern. The solution is reset to zero and the node
// vector to the mesh vertices.
func (dg *DG) AllocateSystem() {
	var (
		h    = dg.DoF
		rank = dg.Comm.Rank
		over = dg.Params.Overintegration
	)
	h.Distribute()
	for p := 0; p <= h.MaxDegree(); p++ {
		dg.tables.prepare(p, p+1+over)
	}
	ghosts := h.GhostDofs()
	dg.Solution = linalg.NewVector(h.Dofs, rank, ghosts)
	dg.RightHandSide = linalg.NewVector(h.Dofs, rank, ghosts)
	dg.Dual = linalg.NewVector(h.Dofs, rank, ghosts)
	dg.VolumeNodes = linalg.NewVector(h.Nodes, rank, h.GhostNodeDofs())
	for _, cells := range [][]int{h.LocalCells(), h.GhostCells()} {
		for _, id := range cells {
			nodes := h.CellNodeDofs(id)
			for k, v := range dg.Mesh.Cells[id].Vertices {
				for d := 0; d < dg.Mesh.Dim; d++ {
					dg.VolumeNodes.Set(nodes[k*dg.Mesh.Dim+d], dg.Mesh.Vertices[v][d])
				}
			}
		}
	}

	dg.SystemMatrix = linalg.NewSparseMatrix(dg.GetDRdWSparsityPattern())
	dg.DRdX = linalg.NewSparseMatrix(dg.GetDRdXSparsityPattern())
	dg.D2RdWdW = linalg.NewSparseMatrix(dg.GetD2RdWdWSparsityPattern())
	dg.D2RdXdX = linalg.NewSparseMatrix(dg.GetD2RdXdXSparsityPattern())
	dg.D2RdWdX = linalg.NewSparseMatrix(dg.GetD2RdWdXSparsityPattern())
	mp := dg.massSparsityPattern()
	dg.GlobalMassMatrix = linalg.NewSparseMatrix(mp)
	dg.GlobalInverseMassMatrix = linalg.NewSparseMatrix(mp)
	dg.TimeScaledGlobalMassMatrix = linalg.NewSparseMatrix(mp)
	dg.MaxDtCell = nil
	dg.ArtificialDissipationCoeffs = make([]float64, len(h.LocalCells()))

	dg.jobs = dg.buildJobs()
	dg.cache.invalidate()
	dg.allocated = true
	dg.Log.Verbosef("allocated %d dofs, %d node dofs, %d jobs on rank 0\n",
		dg.NDofs(), h.Nodes.N(), len(dg.jobs))
}

// SetAllCellsFEDegree changes every cell to degree p and reallocates.
func (dg *DG) SetAllCellsFEDegree(p int) {
	dg.DoF.SetAllDegrees(p)
	dg.AllocateSystem()
}

// SetDual stores the Lagrange multipliers weighting the second derivatives
// and refreshes their ghosts. Collective.
func (dg *DG) SetDual(dual *linalg.Vector) {
	dg.Dual.CopyFrom(dual)
	dg.Dual.UpdateGhosts(dg.Comm)
}

// GetResidualL2Norm is the global norm of the last assembled residual.
// Collective.
func (dg *DG) GetResidualL2Norm() float64 {
	return dg.RightHandSide.L2Norm(dg.Comm)
}

// coupledCells are the cell itself followed by its face neighbors.
func (dg *DG) coupledCells(id int) []int {
	return append([]int{id}, dg.DoF.CellNeighbors(id)...)
}

// buildPattern couples rows(C) with cols(N) for every active cell C and every
// N among C and its face neighbors. Every rank sweeps the whole mesh so
// couplings produced on other ranks land in the owner's pattern.
func (dg *DG) buildPattern(rows linalg.Partitioning, nCols int, rowDofs, colDofs func(int) []int) (p *linalg.Pattern) {
	p = linalg.NewPattern(rows, dg.Comm.Rank, nCols)
	for _, c := range dg.Mesh.ActiveCells() {
		r := rowDofs(c)
		for _, n := range dg.coupledCells(c) {
			p.AddBlock(r, colDofs(n))
		}
	}
	return
}

func (dg *DG) GetDRdWSparsityPattern() *linalg.Pattern {
	h := dg.DoF
	return dg.buildPattern(h.Dofs, h.Dofs.N(), h.CellDofs, h.CellDofs)
}

func (dg *DG) GetDRdXSparsityPattern() *linalg.Pattern {
	h := dg.DoF
	return dg.buildPattern(h.Dofs, h.Nodes.N(), h.CellDofs, h.CellNodeDofs)
}

func (dg *DG) GetD2RdWdWSparsityPattern() *linalg.Pattern {
	return dg.GetDRdWSparsityPattern()
}

func (dg *DG) GetD2RdXdXSparsityPattern() *linalg.Pattern {
	h := dg.DoF
	return dg.buildPattern(h.Nodes, h.Nodes.N(), h.CellNodeDofs, h.CellNodeDofs)
}

func (dg *DG) GetD2RdWdXSparsityPattern() *linalg.Pattern {
	return dg.GetDRdXSparsityPattern()
}

// Printer writes on rank 0 only.
type Printer struct {
	rank    int
	verbose bool
	logger  *log.Logger
}

func NewPrinter(rank int, verbose bool) *Printer {
	return &Printer{rank: rank, verbose: verbose, logger: log.New(os.Stdout, "", 0)}
}

func (p *Printer) Printf(format string, args ...any) {
	if p.rank == 0 {
		p.logger.Printf(format, args...)
	}
}

// Verbosef prints only when verbose output was requested.
func (p *Printer) Verbosef(format string, args ...any) {
	if p.verbose {
		p.Printf(format, args...)
	}
}
