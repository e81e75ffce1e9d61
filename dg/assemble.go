package dg

import (
	"sync"
	"time"

	"github.com/notargets/dgad/ad"
	"github.com/notargets/dgad/basis"
	"github.com/notargets/dgad/linalg"
	"github.com/notargets/dgad/mesh"
	"github.com/notargets/dgad/numflux"
	"github.com/notargets/dgad/physics"
	"github.com/notargets/dgad/types"
	"github.com/notargets/dgad/utils"
)

type jobKind uint8

const (
	volumeJob jobKind = iota
	boundaryJob
	faceJob
)

// job is one integral of the traversal. Face jobs integrate on side a, which
// is the finer side of a hanging face; subB is then the subface of b's face
// covered by a.
type job struct {
	kind         jobKind
	a, b         int
	faceA, faceB int
	subB         int
	bc           types.BCFLAG
}

// buildJobs walks the local cells: the volume first, then every face
// integrated by this cell under the ownership policy.
func (dg *DG) buildJobs() (jobs []job) {
	var (
		m     = dg.Mesh
		cells = m.Cells
	)
	for _, id := range dg.DoF.LocalCells() {
		c := cells[id]
		jobs = append(jobs, job{kind: volumeJob, a: id, subB: -1})
		for face := 0; face < basis.NumFaces(m.Dim); face++ {
			nb := m.Neighbor(id, face)
			switch nb.Kind {
			case mesh.Boundary:
				jobs = append(jobs, job{kind: boundaryJob, a: id, faceA: face, subB: -1,
					bc: dg.BCs[nb.BoundaryID]})
			case mesh.Same:
				if CurrentCellShouldDoTheWork(c, cells[nb.Cells[0]]) {
					jobs = append(jobs, job{kind: faceJob, a: id, faceA: face, b: nb.Cells[0],
						faceB: nb.Face, subB: -1})
				}
			case mesh.Finer:
				for k, fine := range nb.Cells {
					if CurrentCellShouldDoTheWork(c, cells[fine]) {
						jobs = append(jobs, job{kind: faceJob, a: fine, faceA: nb.Face, b: id,
							faceB: face, subB: nb.Subfaces[k]})
					}
				}
			case mesh.Coarser:
				// Only across ranks, when the coarse cell's rank defers
				if CurrentCellShouldDoTheWork(c, cells[nb.Cells[0]]) {
					jobs = append(jobs, job{kind: faceJob, a: id, faceA: face, b: nb.Cells[0],
						faceB: nb.Face, subB: nb.Subfaces[0]})
				}
			}
		}
	}
	return
}

// request selects the products written by one traversal.
type request struct {
	residual, dRdW, dRdX, d2R bool
}

func (rq request) seedW() bool { return rq.dRdW || rq.d2R }

func (rq request) seedX() bool { return rq.dRdX || rq.d2R }

func (rq request) any() bool { return rq.residual || rq.dRdW || rq.dRdX || rq.d2R }

// AssembleResidual evaluates the residual into RightHandSide and, on request,
// dR/dW into SystemMatrix, dR/dX into DRdX and the second derivatives of
// Dual.R into D2RdWdW, D2RdXdX and D2RdWdX. A non zero massScale adds the
// mass matrices scaled by the inverse of massScale times the cell time steps
// to SystemMatrix. Products whose inputs did not change since they were last
// computed are skipped. The ghosts of Solution must be current. Collective.
func (dg *DG) AssembleResidual(computeDRdW, computeDRdX, computeD2R bool, massScale float64) {
	if (computeDRdW || computeDRdX || computeD2R) && !dg.allocated {
		panic(ErrNoSparsityPattern)
	}
	want := request{residual: true, dRdW: computeDRdW, dRdX: computeDRdX, d2R: computeD2R}
	req := dg.cache.plan(dg, want, massScale)
	if !req.any() {
		dg.Stats.CacheHits++
		dg.Log.Verbosef("returning cached residual\n")
		return
	}
	start := time.Now()
	dg.RightHandSide.Zero()
	for _, m := range dg.requestedMatrices(req) {
		m.Zero()
	}

	var results []jobResult
	switch {
	case req.d2R && dg.SecondAD == AD_FadFad:
		dg.Stats.SecondOrder++
		results = runSweep(dg, dg.jobs, func() scalarKit[ad.Fad2] { return &fadFadKit{} }, req)
	case req.d2R:
		dg.Stats.SecondOrder++
		results = runSweep(dg, dg.jobs, func() scalarKit[ad.RadFad] { return newRadFadKit() }, req)
	case req.dRdW || req.dRdX:
		dg.Stats.FirstOrder++
		results = runSweep(dg, dg.jobs, func() scalarKit[ad.Fad1] { return &fadKit{} }, req)
	default:
		dg.Stats.Residual++
		results = runSweep(dg, dg.jobs, func() scalarKit[ad.Real] { return realKit{} }, req)
	}
	for i := range results {
		dg.scatter(&results[i], req)
	}

	dg.RightHandSide.CompressAdd(dg.Comm)
	for _, m := range dg.requestedMatrices(req) {
		m.Compress(dg.Comm)
	}
	if req.dRdW && massScale != 0 {
		dg.TimeScaledMassMatrices(massScale)
		dg.AddTimeScaledMassMatrices()
	}
	dg.cache.store(dg, req, massScale)
	dg.Log.Verbosef("assembled residual dRdW=%v dRdX=%v d2R=%v in %v\n",
		req.dRdW, req.dRdX, req.d2R, time.Since(start))
}

func (dg *DG) requestedMatrices(req request) (ms []*linalg.SparseMatrix) {
	if req.dRdW {
		ms = append(ms, dg.SystemMatrix)
	}
	if req.dRdX {
		ms = append(ms, dg.DRdX)
	}
	if req.d2R {
		ms = append(ms, dg.D2RdWdW, dg.D2RdXdX, dg.D2RdWdX)
	}
	return
}

// scatter adds one job's local blocks into the global objects.
func (dg *DG) scatter(r *jobResult, req request) {
	for k, row := range r.rows {
		dg.RightHandSide.Add(row, r.res[k])
	}
	for k, row := range r.rows {
		for d, col := range r.dirCols {
			switch {
			case d < r.nwDir && req.dRdW:
				dg.SystemMatrix.Add(row, col, r.jac[k][d])
			case d >= r.nwDir && req.dRdX:
				dg.DRdX.Add(row, col, r.jac[k][d])
			}
		}
	}
	if !req.d2R {
		return
	}
	for i, ci := range r.dirCols {
		for j, cj := range r.dirCols {
			switch {
			case i < r.nwDir && j < r.nwDir:
				dg.D2RdWdW.Add(ci, cj, r.hess[i][j])
			case i >= r.nwDir && j >= r.nwDir:
				dg.D2RdXdX.Add(ci, cj, r.hess[i][j])
			case i < r.nwDir:
				dg.D2RdWdX.Add(ci, cj, r.hess[i][j])
			}
		}
	}
}

// runSweep evaluates jobs on dg.Threads workers, each with its own kit.
// Results are returned in job order so the scatter does not depend on the
// thread count.
func runSweep[T ad.Number[T]](dg *DG, jobs []job, newKit func() scalarKit[T], req request) (results []jobResult) {
	var (
		pde = physics.For[T](dg.Physics)
		pm  = utils.NewPartitionMap(dg.Threads, len(jobs))
		wg  sync.WaitGroup
	)
	// Flux names were validated by NewDG
	conv, err := numflux.NewConvective[T](dg.fluxType, pde)
	if err != nil {
		panic(err)
	}
	diss, err := numflux.NewDissipative[T](dg.dissType, pde)
	if err != nil {
		panic(err)
	}
	integ := newIntegrator(dg.Form, pde, conv, diss)
	results = make([]jobResult, len(jobs))
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			var (
				kit    = newKit()
				lo, hi = pm.GetBucketRange(np)
			)
			for j := lo; j < hi; j++ {
				evaluateJob(dg, integ, kit, &jobs[j], req, &results[j])
			}
		}(np)
	}
	wg.Wait()
	return
}

// evaluateJob seeds the unknowns of the cells of one job, integrates, and
// harvests the local residual and its derivatives.
func evaluateJob[T ad.Number[T]](dg *DG, integ Integrator[T], kit scalarKit[T], jb *job, req request,
	r *jobResult) {
	var (
		h     = dg.DoF
		dim   = dg.Mesh.Dim
		over  = dg.Params.Overintegration
		cells = []int{jb.a}
		nDir  int
	)
	if jb.kind == faceJob {
		cells = append(cells, jb.b)
	}
	wDofs := make([][]int, len(cells))
	xDofs := make([][]int, len(cells))
	for k, id := range cells {
		wDofs[k] = h.CellDofs(id)
		xDofs[k] = h.CellNodeDofs(id)
		r.rows = append(r.rows, wDofs[k]...)
		if req.seedW() {
			nDir += len(wDofs[k])
		}
		if req.seedX() {
			nDir += len(xDofs[k])
		}
	}
	kit.begin(nDir)
	states := make([]*cellState[T], len(cells))
	dir := 0
	for k, id := range cells {
		p := h.Degree(id)
		states[k] = &cellState[T]{ID: id, Table: dg.tables.cell(p, p+1+over), W: make([]T, len(wDofs[k]))}
		for i, g := range wDofs[k] {
			d := -1
			if req.seedW() {
				d = dir
				dir++
				r.dirCols = append(r.dirCols, g)
			}
			states[k].W[i] = kit.variable(dg.Solution.At(g), d)
		}
	}
	r.nwDir = dir
	for k := range cells {
		nv := len(xDofs[k]) / dim
		states[k].X = make([][]T, nv)
		for v := 0; v < nv; v++ {
			states[k].X[v] = make([]T, dim)
			for d := 0; d < dim; d++ {
				var (
					g   = xDofs[k][v*dim+d]
					idx = -1
				)
				if req.seedX() {
					idx = dir
					dir++
					r.dirCols = append(r.dirCols, g)
				}
				states[k].X[v][d] = kit.variable(dg.VolumeNodes.At(g), idx)
			}
		}
	}

	var zero T
	out := make([]T, len(r.rows))
	for i := range out {
		out[i] = zero.Const(0)
	}
	nA := len(wDofs[0])
	switch jb.kind {
	case volumeJob:
		integ.AssembleVolume(states[0], out)
	case boundaryJob:
		fq := dg.tables.face(states[0].Table.Quad.NPerDir)
		integ.AssembleBoundary(states[0], jb.faceA, jb.bc, dg.EvaluatePenaltyScaling(jb.a, jb.faceA), fq, out)
	case faceJob:
		var (
			nq      = max(states[0].Table.Quad.NPerDir, states[1].Table.Quad.NPerDir)
			penalty = dg.facePenalty(jb.a, jb.faceA, jb.b, jb.faceB)
		)
		integ.AssembleFace(states[0], jb.faceA, states[1], jb.faceB, jb.subB, penalty,
			dg.tables.face(nq), out[:nA], out[nA:])
	}

	var lambda []float64
	if req.d2R {
		lambda = make([]float64, len(r.rows))
		for i, row := range r.rows {
			lambda[i] = dg.Dual.At(row)
		}
	}
	kit.harvest(out, lambda, r)
}
