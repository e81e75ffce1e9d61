package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange(t *testing.T) {
	for _, np := range []int{1, 2, 5} {
		w := NewWorld(np)
		err := w.Run(func(c *Comm) error {
			for round := 0; round < 3; round++ {
				out := make(map[int]*Packet)
				for r := 0; r < c.Size; r++ {
					out[r] = &Packet{Idx: []int{c.Rank, r, round}}
				}
				in := c.Exchange(out)
				if !assert.Len(t, in, c.Size) {
					return errors.New("short exchange")
				}
				for i, pkt := range in {
					assert.Equal(t, i, pkt.From)
					assert.Equal(t, []int{i, c.Rank, round}, pkt.Idx)
				}
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestAllReduce(t *testing.T) {
	w := NewWorld(4)
	err := w.Run(func(c *Comm) error {
		sum := c.AllReduceSum(float64(c.Rank), 1)
		assert.Equal(t, []float64{6, 4}, sum)
		assert.Equal(t, 0., c.AllReduceMin(float64(c.Rank)))
		assert.Equal(t, 3., c.AllReduceMax(float64(c.Rank)))
		assert.False(t, c.AllReduceAnd(c.Rank != 2))
		assert.True(t, c.AllReduceAnd(true))
		return nil
	})
	require.NoError(t, err)

	c := Serial()
	assert.Equal(t, []float64{2.5}, c.AllReduceSum(2.5))
	assert.True(t, c.AllReduceAnd(true))
}

func TestRunAbort(t *testing.T) {
	var reached int32
	w := NewWorld(3)
	err := w.Run(func(c *Comm) error {
		if c.Rank == 1 {
			return errors.New("boom")
		}
		c.Barrier()
		atomic.AddInt32(&reached, 1)
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rank 1: boom")
	assert.Equal(t, int32(0), atomic.LoadInt32(&reached))
}
