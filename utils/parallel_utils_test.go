package utils

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Bucket sizes differ by at most one
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				maxK := pm.GetBucketDimension(np)
				histo[maxK]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1]))
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Inverted bucket probe
		for maxIndex := 10; maxIndex < 500; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			for k := 0; k < maxIndex; k++ {
				tryCount, bn, min, max := pm.getBucketWithTryCount(k)
				mmin, mmax := pm.GetBucketRange(bn)
				assert.True(t, k >= min && k < max && min == mmin && max == mmax && tryCount <= 1)
			}
		}
		pm := NewPartitionMap(3, 10)
		bn, _, _ := pm.GetBucket(10)
		assert.Equal(t, -1, bn)
	}
}

func TestMailBox(t *testing.T) {
	var (
		NP = 4
		mb = NewMailBox[int](NP)
		wg sync.WaitGroup
	)
	// Post, deliver, wait, receive
	for n := 0; n < NP; n++ {
		for k := 0; k < NP; k++ {
			if k != n {
				mb.PostMessage(n, k, 10*n+k)
			}
		}
	}
	for n := 0; n < NP; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			mb.DeliverMyMessages(n)
		}(n)
	}
	wg.Wait()
	for n := 0; n < NP; n++ {
		mb.ReceiveMyMessages(n)
		got := map[int]bool{}
		for _, msg := range mb.ReceiveMsgQs[n].Cells() {
			assert.Equal(t, n, msg%10)
			got[msg/10] = true
		}
		assert.Equal(t, NP-1, len(got))
		mb.ClearMyMessages(n)
		assert.Equal(t, 0, mb.ReceiveMsgQs[n].Len())
	}
	// Outboxes were drained by the receivers
	for n := 0; n < NP; n++ {
		for _, buf := range mb.PostMsgQs[n] {
			assert.Equal(t, 0, buf.Len())
		}
	}
}
