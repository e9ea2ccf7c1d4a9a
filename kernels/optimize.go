package kernels

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sbl8/flightloop/core"
)

// MinChunkPoints is the smallest slice of a batch worth handing to its own
// goroutine; below it the fan-out costs more than the arithmetic.
const MinChunkPoints = 4096

var workerOverride atomic.Int32

// Workers returns how many goroutines the parallel variant fans out to.
func Workers() int {
	if n := workerOverride.Load(); n > 0 {
		return int(n)
	}
	return runtime.GOMAXPROCS(0)
}

// SetWorkers pins the parallel fan-out. n <= 0 restores the GOMAXPROCS default.
func SetWorkers(n int) {
	if n < 0 {
		n = 0
	}
	workerOverride.Store(int32(n))
}

// chunkCount caps the fan-out so every goroutine gets at least MinChunkPoints.
func chunkCount(n int) int {
	parts := Workers()
	if limit := n / MinChunkPoints; parts > limit {
		parts = limit
	}
	if parts < 1 {
		parts = 1
	}
	return parts
}

// transformParallel runs the unrolled kernel over disjoint chunks whose
// boundaries sit on cache lines, then waits for all of them. A cycle still
// sees exactly one invocation.
func transformParallel(dst, src []core.Point, m *core.Matrix) {
	mustMatch(dst, src)
	chunks := core.SplitChunks(len(src), chunkCount(len(src)))
	if len(chunks) <= 1 {
		transformUnrolled(dst, src, m)
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(chunks))
	for _, c := range chunks {
		go func(lo, hi int) {
			defer wg.Done()
			transformUnrolled(dst[lo:hi], src[lo:hi], m)
		}(c[0], c[1])
	}
	wg.Wait()
}
