package linalg

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgad/parallel"
)

func TestPartitioning(t *testing.T) {
	p := NewPartitioning([]int{3, 0, 4})
	assert.Equal(t, 7, p.N())
	assert.Equal(t, 3, p.NRanks())
	assert.Equal(t, 0, p.Owner(2))
	assert.Equal(t, 2, p.Owner(3))
	assert.Equal(t, 2, p.Owner(6))
	lo, hi := p.Range(1)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 3, hi)
	assert.Panics(t, func() { p.Owner(7) })
}

func TestVectorGhosts(t *testing.T) {
	var (
		np   = 3
		part = NewPartitioning([]int{2, 2, 2})
	)
	err := parallel.NewWorld(np).Run(func(c *parallel.Comm) error {
		// Each rank ghosts the first entry of the next rank
		next := ((c.Rank + 1) % np) * 2
		v := NewVector(part, c.Rank, []int{next, next, 2 * c.Rank})
		assert.Len(t, v.Ghosts(), 1)
		lo, hi := v.OwnedRange()
		for i := lo; i < hi; i++ {
			v.Set(i, float64(10*i))
		}
		v.UpdateGhosts(c)
		assert.Equal(t, float64(10*next), v.At(next))
		assert.Panics(t, func() { v.At((next + 3) % 6) })

		// Ghost contributions end up at the owner
		w := NewVector(part, c.Rank, []int{next})
		w.Add(lo, 1)
		w.Add(next, 2)
		w.CompressAdd(c)
		assert.Equal(t, 3., w.At(lo))
		assert.Equal(t, 0., w.At(next))
		assert.InDelta(t, math.Sqrt(27), w.L2Norm(c), 1.e-14)
		assert.Equal(t, 3., w.LInfNorm(c))
		assert.Equal(t, 27., w.Dot(w, c))

		u := v.Clone()
		assert.True(t, u.Equal(v))
		u.Add(lo, 1)
		assert.False(t, u.Equal(v))
		u.CopyFrom(v)
		assert.True(t, u.Equal(v))
		return nil
	})
	require.NoError(t, err)
}

func TestSparseMatrix(t *testing.T) {
	var (
		np   = 2
		part = NewPartitioning([]int{2, 2})
	)
	err := parallel.NewWorld(np).Run(func(c *parallel.Comm) error {
		// Tridiagonal pattern built from the full index range on every rank
		p := NewPattern(part, c.Rank, 4)
		for i := 0; i < 4; i++ {
			p.AddBlock([]int{i}, []int{max(i-1, 0), i, min(i+1, 3)})
		}
		m := NewSparseMatrix(p)
		assert.Equal(t, 5, m.NNZ())
		r, cols := m.Dims()
		assert.Equal(t, 4, r)
		assert.Equal(t, 4, cols)

		// Every rank adds 1 to every entry; off rank rows are stashed
		for i := 0; i < 4; i++ {
			for j := max(i-1, 0); j <= min(i+1, 3); j++ {
				m.Add(i, j, 1)
			}
		}
		m.Compress(c)
		lo, _ := m.OwnedRange()
		assert.Equal(t, 2., m.At(lo, lo))
		assert.Equal(t, 0., m.At(lo, (lo+2)%4))
		assert.True(t, m.InPattern(lo, lo+1))
		assert.InDelta(t, 2*3.1622776601683795, m.FrobeniusNorm(c), 1.e-12)

		x := NewVector(part, c.Rank, []int{0, 1, 2, 3})
		for i := 0; i < 4; i++ {
			if x.IsOwned(i) {
				x.Set(i, 1)
			}
		}
		x.UpdateGhosts(c)
		y := NewVector(part, c.Rank, nil)
		m.MulVec(x, y)
		if c.Rank == 0 {
			assert.Equal(t, []float64{4, 6}, y.Owned())
		} else {
			assert.Equal(t, []float64{6, 4}, y.Owned())
		}

		func() {
			defer func() {
				p := recover()
				require.NotNil(t, p)
				assert.True(t, errors.Is(p.(error), ErrNotInPattern))
			}()
			m.Add(lo, (lo+2)%4, 1)
		}()

		m.SetReadOnly("m")
		assert.Panics(t, func() { m.Zero() })
		m.SetWritable()
		o := NewSparseMatrix(p)
		o.AddScaled(m, 0.5)
		assert.Equal(t, 1., o.At(lo, lo))
		o.CopyFrom(m)
		assert.True(t, o.Equal(m))
		m.Zero()
		assert.Equal(t, 0., m.At(lo, lo))
		return nil
	})
	require.NoError(t, err)
}
