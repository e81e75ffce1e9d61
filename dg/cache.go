package dg

import (
	"gonum.org/v1/gonum/floats"
)

// snapshot records the inputs a product was last computed from.
type snapshot struct {
	valid     bool
	solution  []float64
	nodes     []float64
	dual      []float64
	massScale float64
}

func (s *snapshot) matches(dg *DG, withDual bool, massScale float64) bool {
	if !s.valid || s.massScale != massScale {
		return false
	}
	if !floats.Equal(s.solution, dg.Solution.Data) || !floats.Equal(s.nodes, dg.VolumeNodes.Data) {
		return false
	}
	return !withDual || floats.Equal(s.dual, dg.Dual.Data)
}

func (s *snapshot) take(dg *DG, withDual bool, massScale float64) {
	s.valid = true
	s.massScale = massScale
	s.solution = append(s.solution[:0], dg.Solution.Data...)
	s.nodes = append(s.nodes[:0], dg.VolumeNodes.Data...)
	if withDual {
		s.dual = append(s.dual[:0], dg.Dual.Data...)
	}
}

// derivativeCache lets AssembleResidual skip products whose inputs are
// unchanged. The residual depends on the solution and the nodes, dR/dW also
// on the mass scaling, the second derivatives also on the dual.
type derivativeCache struct {
	residual, dRdW, dRdX, d2R snapshot
}

func (dc *derivativeCache) invalidate() {
	*dc = derivativeCache{}
}

// plan returns the products to recompute. The hit decisions are agreed on by
// all ranks. An empty request means everything asked for is current.
func (dc *derivativeCache) plan(dg *DG, want request, massScale float64) (req request) {
	var (
		c     = dg.Comm
		log   = dg.Log
		hitR  = c.AllReduceAnd(dc.residual.matches(dg, false, 0))
		hit   = request{residual: hitR}
		names = []string{"dRdW", "dRdX", "d2R"}
	)
	if want.dRdW {
		hit.dRdW = c.AllReduceAnd(dc.dRdW.matches(dg, false, massScale))
	}
	if want.dRdX {
		hit.dRdX = c.AllReduceAnd(dc.dRdX.matches(dg, false, 0))
	}
	if want.d2R {
		hit.d2R = c.AllReduceAnd(dc.d2R.matches(dg, true, 0))
	}
	for k, pair := range [][2]bool{{want.dRdW, hit.dRdW}, {want.dRdX, hit.dRdX}, {want.d2R, hit.d2R}} {
		if pair[0] && pair[1] {
			log.Verbosef("returning cached %s\n", names[k])
		}
	}
	req = request{
		dRdW: want.dRdW && !hit.dRdW,
		dRdX: want.dRdX && !hit.dRdX,
		d2R:  want.d2R && !hit.d2R,
	}
	req.residual = !hitR || req.dRdW || req.dRdX || req.d2R
	return
}

func (dc *derivativeCache) store(dg *DG, req request, massScale float64) {
	dc.residual.take(dg, false, 0)
	if req.dRdW {
		dc.dRdW.take(dg, false, massScale)
	}
	if req.dRdX {
		dc.dRdX.take(dg, false, 0)
	}
	if req.d2R {
		dc.d2R.take(dg, true, 0)
	}
}

// ForceRecompute discards every cached product.
func (dg *DG) ForceRecompute() {
	dg.cache.invalidate()
}
