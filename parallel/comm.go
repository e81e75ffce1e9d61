package parallel

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/notargets/dgad/utils"
)

var (
	ErrAborted = errors.New("parallel: world aborted by another rank")
)

// Packet is the unit of point to point communication between ranks.
type Packet struct {
	From int
	Tag  int
	Idx  []int
	Val  []float64
}

// World is a set of ranks that run concurrently in one process and talk
// through a shared MailBox.
type World struct {
	NP      int
	mb      *utils.MailBox[*Packet]
	barrier *barrier
}

func NewWorld(np int) *World {
	if np < 1 {
		panic(fmt.Sprintf("invalid number of ranks %d", np))
	}
	return &World{
		NP:      np,
		mb:      utils.NewMailBox[*Packet](np),
		barrier: newBarrier(np),
	}
}

// Serial returns the communicator of a single rank world.
func Serial() *Comm {
	return NewWorld(1).Comm(0)
}

func (w *World) Comm(rank int) *Comm {
	return &Comm{Rank: rank, Size: w.NP, world: w}
}

// Run executes fn once per rank, each on its own goroutine, and returns the
// combined errors. A rank that fails or panics aborts the others at their
// next collective call.
func (w *World) Run(fn func(c *Comm) error) error {
	var (
		wg   sync.WaitGroup
		errs = make([]error, w.NP)
	)
	for r := 0; r < w.NP; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					w.barrier.abort()
					if e, ok := p.(error); ok && errors.Is(e, ErrAborted) {
						return
					}
					errs[r] = fmt.Errorf("rank %d: panic: %v", r, p)
				}
			}()
			if err := fn(w.Comm(r)); err != nil {
				w.barrier.abort()
				errs[r] = fmt.Errorf("rank %d: %w", r, err)
			}
		}(r)
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// Comm is the per rank handle used for all collective operations. Every
// method on Comm except Printf is collective and must be called by all ranks
// in the same order.
type Comm struct {
	Rank, Size int
	world      *World
}

func (c *Comm) Barrier() {
	if c.Size == 1 {
		return
	}
	c.world.barrier.wait()
}

// Exchange delivers each packet in out to its target rank and returns the
// packets addressed to this rank, ordered by sender.
func (c *Comm) Exchange(out map[int]*Packet) (in []*Packet) {
	var (
		mb = c.world.mb
	)
	for target, pkt := range out {
		pkt.From = c.Rank
		if target == c.Rank {
			in = append(in, pkt)
			continue
		}
		mb.PostMessage(c.Rank, target, pkt)
	}
	if c.Size > 1 {
		mb.DeliverMyMessages(c.Rank)
		c.Barrier()
		mb.ReceiveMyMessages(c.Rank)
		in = append(in, mb.ReceiveMsgQs[c.Rank].Cells()...)
		mb.ClearMyMessages(c.Rank)
		c.Barrier()
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].From < in[j].From })
	return
}

// allGather returns every rank's contribution indexed by rank.
func (c *Comm) allGather(vals []float64) (all [][]float64) {
	out := make(map[int]*Packet, c.Size)
	for r := 0; r < c.Size; r++ {
		out[r] = &Packet{Val: vals}
	}
	all = make([][]float64, c.Size)
	for _, pkt := range c.Exchange(out) {
		all[pkt.From] = pkt.Val
	}
	return
}

// AllReduceSum sums element wise over ranks. Contributions are added in rank
// order so every rank sees a bitwise identical result.
func (c *Comm) AllReduceSum(vals ...float64) (sum []float64) {
	sum = make([]float64, len(vals))
	for _, v := range c.allGather(vals) {
		for i := range sum {
			sum[i] += v[i]
		}
	}
	return
}

func (c *Comm) AllReduceMin(val float64) (min float64) {
	min = math.Inf(1)
	for _, v := range c.allGather([]float64{val}) {
		min = math.Min(min, v[0])
	}
	return
}

func (c *Comm) AllReduceMax(val float64) (max float64) {
	max = math.Inf(-1)
	for _, v := range c.allGather([]float64{val}) {
		max = math.Max(max, v[0])
	}
	return
}

// AllReduceAnd is true only if flag is true on every rank.
func (c *Comm) AllReduceAnd(flag bool) bool {
	var f float64
	if flag {
		f = 1
	}
	return c.AllReduceMin(f) == 1
}

// Printf logs from rank 0 only.
func (c *Comm) Printf(format string, args ...any) {
	if c.Rank == 0 {
		log.Printf(format, args...)
	}
}

type barrier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	n      int
	count  int
	gen    int
	broken bool
}

func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken {
		panic(ErrAborted)
	}
	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for gen == b.gen && !b.broken {
		b.cond.Wait()
	}
	if b.broken {
		panic(ErrAborted)
	}
}

func (b *barrier) abort() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
