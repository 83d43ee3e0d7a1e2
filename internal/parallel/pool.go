// Package parallel runs per-pixel iteration work across a fixed pool of
// goroutines. Pixels are independent, so the only scheduling concern is
// load balance: escape-boundary ranges iterate orders of magnitude longer
// than interior or far-exterior ones, which is why workers steal ranges
// from each other instead of partitioning the arena statically.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// RangeFunc processes the half-open pixel index range [start, end).
type RangeFunc func(start, end int)

type rangeTask struct {
	start, end int
	fn         RangeFunc
	wg         *sync.WaitGroup
}

// Pool is a fixed set of worker goroutines executing contiguous pixel
// ranges. Each worker has its own queue and steals from the others when it
// runs dry.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan rangeTask
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool creates a pool with the given number of workers. Zero or
// negative means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers: workers,
		queues:  make([]chan rangeTask, workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan rangeTask, queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	myQueue := p.queues[id]

	for {
		select {
		case <-p.done:
			p.drain(myQueue)
			return
		case t := <-myQueue:
			t.run()
		default:
			if t, ok := p.steal(id); ok {
				t.run()
				continue
			}
			// Nothing to steal anywhere, block on own queue.
			select {
			case <-p.done:
				p.drain(myQueue)
				return
			case t := <-myQueue:
				t.run()
			}
		}
	}
}

func (t rangeTask) run() {
	if t.fn != nil {
		t.fn(t.start, t.end)
	}
	if t.wg != nil {
		t.wg.Done()
	}
}

func (p *Pool) drain(queue chan rangeTask) {
	for {
		select {
		case t := <-queue:
			t.run()
		default:
			return
		}
	}
}

func (p *Pool) steal(myID int) (rangeTask, bool) {
	for i := 0; i < p.workers; i++ {
		if i == myID {
			continue
		}
		select {
		case t := <-p.queues[i]:
			return t, true
		default:
		}
	}
	return rangeTask{}, false
}

// ExecuteRanges splits [0, n) into contiguous chunks of at most grain
// indices, runs fn over every chunk on the pool, and waits for all of them.
// A zero or negative grain picks a chunk size that yields a few tasks per
// worker. On a closed pool the work runs inline on the caller.
func (p *Pool) ExecuteRanges(n, grain int, fn RangeFunc) {
	if n <= 0 || fn == nil {
		return
	}
	if !p.running.Load() {
		fn(0, n)
		return
	}
	if grain <= 0 {
		grain = n / (p.workers * 4)
		if grain < 1 {
			grain = 1
		}
	}

	var wg sync.WaitGroup
	next := 0
	for i := 0; next < n; i++ {
		end := next + grain
		if end > n {
			end = n
		}
		wg.Add(1)
		t := rangeTask{start: next, end: end, fn: fn, wg: &wg}
		select {
		case p.queues[i%p.workers] <- t:
		case <-p.done:
			t.run()
		}
		next = end
	}
	wg.Wait()
}

// Close stops accepting work, finishes everything queued, and stops the
// workers. Safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

// IsRunning reports whether the pool is accepting work.
func (p *Pool) IsRunning() bool { return p.running.Load() }
