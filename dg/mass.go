package dg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/linalg"
	"github.com/notargets/dgad/physics"
)

// massSparsityPattern couples each state of a cell with itself only.
func (dg *DG) massSparsityPattern() (p *linalg.Pattern) {
	h := dg.DoF
	p = linalg.NewPattern(h.Dofs, dg.Comm.Rank, h.Dofs.N())
	for _, id := range dg.Mesh.ActiveCells() {
		var (
			dofs = h.CellDofs(id)
			nb   = h.NBasis(id)
		)
		for s := 0; s < h.NState; s++ {
			p.AddBlock(dofs[s*nb:(s+1)*nb], dofs[s*nb:(s+1)*nb])
		}
	}
	return
}

// realState loads the current solution and nodes of a local or ghost cell.
func (dg *DG) realState(id int) (c *cellState[ad.Real]) {
	var (
		h     = dg.DoF
		dim   = dg.Mesh.Dim
		p     = h.Degree(id)
		dofs  = h.CellDofs(id)
		nodes = h.CellNodeDofs(id)
	)
	c = &cellState[ad.Real]{
		ID:    id,
		Table: dg.tables.cell(p, p+1+dg.Params.Overintegration),
		W:     make([]ad.Real, len(dofs)),
		X:     make([][]ad.Real, len(nodes)/dim),
	}
	for i, g := range dofs {
		c.W[i] = ad.Real(dg.Solution.At(g))
	}
	for v := range c.X {
		c.X[v] = make([]ad.Real, dim)
		for d := 0; d < dim; d++ {
			c.X[v][d] = ad.Real(dg.VolumeNodes.At(nodes[v*dim+d]))
		}
	}
	return
}

// cellMass is the scalar mass block of a cell, shared by every state.
func (dg *DG) cellMass(c *cellState[ad.Real]) (M *mat.Dense) {
	var (
		tab = c.Table
		nb  = tab.Basis.N
	)
	M = mat.NewDense(nb, nb, nil)
	for k, xi := range tab.Quad.Points {
		g := evalGeometry(dg.Mesh.Dim, c.X, xi)
		jxw := g.Det.Value() * tab.Quad.Weights[k]
		for i := 0; i < nb; i++ {
			for j := 0; j < nb; j++ {
				M.Set(i, j, M.At(i, j)+tab.Phi[k][i]*tab.Phi[k][j]*jxw)
			}
		}
	}
	return
}

// setCellBlocks writes scale*block for every state of cell id.
func (dg *DG) setCellBlocks(m *linalg.SparseMatrix, id int, block mat.Matrix, scale float64) {
	var (
		dofs = dg.DoF.CellDofs(id)
		nb   = dg.DoF.NBasis(id)
	)
	for s := 0; s < dg.DoF.NState; s++ {
		for i := 0; i < nb; i++ {
			for j := 0; j < nb; j++ {
				m.Set(dofs[s*nb+i], dofs[s*nb+j], scale*block.At(i, j))
			}
		}
	}
}

// EvaluateMassMatrices fills GlobalMassMatrix from the current nodes and,
// when doInverse is set, GlobalInverseMassMatrix.
func (dg *DG) EvaluateMassMatrices(doInverse bool) {
	dg.GlobalMassMatrix.Zero()
	if doInverse {
		dg.GlobalInverseMassMatrix.Zero()
	}
	for _, id := range dg.DoF.LocalCells() {
		M := dg.cellMass(dg.realState(id))
		dg.setCellBlocks(dg.GlobalMassMatrix, id, M, 1)
		if !doInverse {
			continue
		}
		var inv mat.Dense
		if err := inv.Inverse(M); err != nil {
			panic(fmt.Errorf("mass matrix of cell %d: %w", id, err))
		}
		dg.setCellBlocks(dg.GlobalInverseMassMatrix, id, &inv, 1)
	}
}

// AddMassMatrices adds scale times the mass matrix to SystemMatrix.
func (dg *DG) AddMassMatrices(scale float64) {
	dg.SystemMatrix.AddScaled(dg.GlobalMassMatrix, scale)
}

// TimeScaledMassMatrices fills TimeScaledGlobalMassMatrix with M/(scale*dt)
// per cell, refreshing MaxDtCell from the current solution. Collective in
// exact time stepping mode.
func (dg *DG) TimeScaledMassMatrices(scale float64) {
	dt := dg.EvaluateTimeSteps(dg.Params.ExactTimeStepping)
	dg.TimeScaledGlobalMassMatrix.Zero()
	for k, id := range dg.DoF.LocalCells() {
		dg.setCellBlocks(dg.TimeScaledGlobalMassMatrix, id, dg.cellMass(dg.realState(id)), 1/(scale*dt[k]))
	}
}

func (dg *DG) AddTimeScaledMassMatrices() {
	dg.SystemMatrix.AddScaled(dg.TimeScaledGlobalMassMatrix, 1)
}

// EvaluateTimeSteps returns dt = CFL*h/lambda per local cell and stores it
// in MaxDtCell. h is the cell volume to the power 1/dim and lambda the
// largest convective eigenvalue over the volume points. A cell without
// convection gets an infinite step and a non-physical state a NaN one. In exact mode every cell gets the global
// minimum, which is collective.
func (dg *DG) EvaluateTimeSteps(exact bool) (dt []float64) {
	var (
		dim    = dg.Mesh.Dim
		pde    = physics.For[ad.Real](dg.Physics)
		locals = dg.DoF.LocalCells()
		minDt  = math.Inf(1)
	)
	dt = make([]float64, len(locals))
	for k, id := range locals {
		var (
			c        = dg.realState(id)
			tab      = c.Table
			vol, lam float64
		)
		for q, xi := range tab.Quad.Points {
			g := evalGeometry(dim, c.X, xi)
			u, _ := c.evaluate(tab.Phi[q], g.physicalGradients(tab.DPhi[q]))
			vol += g.Det.Value() * tab.Quad.Weights[q]
			lam = max(lam, pde.MaxConvectiveEigenvalue(u).Value())
		}
		// A non-physical state leaves lam, and so dt, NaN
		dt[k] = math.Inf(1)
		if lam != 0 {
			dt[k] = dg.Params.CFL * math.Pow(vol, 1/float64(dim)) / lam
		}
		minDt = min(minDt, dt[k])
	}
	if exact {
		minDt = dg.Comm.AllReduceMin(minDt)
		for k := range dt {
			dt[k] = minDt
		}
	}
	dg.MaxDtCell = dt
	return
}

// FreeStream is the reference flow of the Euler equations, nil for other
// physics.
func (dg *DG) FreeStream() *physics.FreeStream {
	if e, ok := physics.For[ad.Real](dg.Physics).(interface{ FreeStream() *physics.FreeStream }); ok {
		return e.FreeStream()
	}
	return nil
}

// FlowFunctionRange returns the global extremes of a derived flow quantity
// over the constant modes of the local cells. Collective.
func (dg *DG) FlowFunctionRange(pf physics.FlowFunction) (lo, hi float64, err error) {
	fs := dg.FreeStream()
	if fs == nil {
		return 0, 0, ErrNoFreeStream
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, id := range dg.DoF.LocalCells() {
		var (
			c    = dg.realState(id)
			nb   = c.Table.Basis.N
			phi0 = c.Table.Phi[0][0]
			q    = make([]float64, dg.DoF.NState)
		)
		for s := range q {
			q[s] = c.W[s*nb].Value() * phi0
		}
		f := fs.GetFlowFunction(q, pf)
		lo, hi = math.Min(lo, f), math.Max(hi, f)
	}
	return dg.Comm.AllReduceMin(lo), dg.Comm.AllReduceMax(hi), nil
}
