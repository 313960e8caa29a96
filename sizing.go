package ringqueue

import (
	"sync"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"
)

// DefaultMinCap is the lower bound spec.md §3 assigns min_cap in release
// builds.
const DefaultMinCap = 32

// tuneRuntimeOnce applies container-aware GOMAXPROCS/GOMEMLIMIT tuning
// exactly once per process, the first time a Queue is constructed. Both
// calls are best-effort: a failure to detect a cgroup just leaves the
// runtime defaults in place, which is why their errors are logged, not
// returned.
var tuneRuntimeOnce sync.Once

func tuneRuntime(logger zerolog.Logger) {
	tuneRuntimeOnce.Do(func() {
		if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {})); err != nil {
			logger.Debug().Err(err).Msg(`ringqueue: automaxprocs tuning skipped`)
		}
		if _, err := memlimit.SetGoMemLimitWithOpts(
			memlimit.WithRatio(0.9),
		); err != nil {
			logger.Debug().Err(err).Msg(`ringqueue: automemlimit tuning skipped`)
		}
	})
}

// defaultUnlimitedCap picks the "maximum representable size" spec.md §3
// assigns to max_cap for unbounded queues: a fraction of total system
// memory, expressed in elements of elemSize bytes, rather than a raw
// integer-overflow sentinel. The result is always rounded down to a power
// of two of at least DefaultMinCap elements.
func defaultUnlimitedCap(elemSize int) int {
	total := memory.TotalMemory()
	if total == 0 {
		// detection failed (e.g. sandboxed/restricted environment); fall
		// back to a generous but bounded ceiling instead of unlimited.
		total = 1 << 30
	}

	budget := total / 4 // leave headroom for everything else in the process
	elems := int(budget / uint64(elemSize))
	if elems < DefaultMinCap {
		elems = DefaultMinCap
	}

	return floorPow2(elems)
}

// floorPow2 rounds n down to a power of two, at least 1.
func floorPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p<<1 <= n {
		p <<= 1
	}
	return p
}
