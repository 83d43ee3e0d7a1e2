package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestPoolCreate(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestPoolCreateZeroWorkers(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()

	if pool.Workers() != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers() = %d, want GOMAXPROCS (%d)", pool.Workers(), runtime.GOMAXPROCS(0))
	}
}

func TestExecuteRangesCoversEveryIndex(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	const n = 10_000
	hits := make([]int32, n)
	pool.ExecuteRanges(n, 128, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times, want exactly 1", i, h)
		}
	}
}

func TestExecuteRangesDefaultGrain(t *testing.T) {
	pool := NewPool(3)
	defer pool.Close()

	var total atomic.Int64
	pool.ExecuteRanges(997, 0, func(start, end int) {
		total.Add(int64(end - start))
	})
	if total.Load() != 997 {
		t.Fatalf("covered %d indices, want 997", total.Load())
	}
}

func TestExecuteRangesUnevenLoad(t *testing.T) {
	// Ranges with wildly different costs must all complete; stealing keeps
	// the slow ones from serializing behind one worker.
	pool := NewPool(2)
	defer pool.Close()

	var total atomic.Int64
	pool.ExecuteRanges(64, 1, func(start, end int) {
		work := 1
		if start%8 == 0 {
			work = 50_000
		}
		acc := 0
		for i := 0; i < work; i++ {
			acc += i
		}
		_ = acc
		total.Add(int64(end - start))
	})
	if total.Load() != 64 {
		t.Fatalf("covered %d indices, want 64", total.Load())
	}
}

func TestExecuteRangesEmpty(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()
	pool.ExecuteRanges(0, 4, func(start, end int) {
		t.Error("range fn called for empty input")
	})
}

func TestClosedPoolRunsInline(t *testing.T) {
	pool := NewPool(2)
	pool.Close()

	var total atomic.Int64
	pool.ExecuteRanges(100, 10, func(start, end int) {
		total.Add(int64(end - start))
	})
	if total.Load() != 100 {
		t.Fatalf("closed pool covered %d indices, want 100", total.Load())
	}
}

func TestCloseIdempotent(t *testing.T) {
	pool := NewPool(2)
	pool.Close()
	pool.Close()
	if pool.IsRunning() {
		t.Error("pool still running after Close")
	}
}

func BenchmarkExecuteRanges(b *testing.B) {
	pool := NewPool(0)
	defer pool.Close()

	const n = 1 << 16
	sink := make([]float64, n)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.ExecuteRanges(n, 1024, func(start, end int) {
			for j := start; j < end; j++ {
				sink[j] = float64(j) * 1.0000001
			}
		})
	}
}
