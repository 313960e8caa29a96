package ringqueue

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-ringqueue/internal/ring"
	"github.com/rs/zerolog"
)

// Queue is the shared target every ProducerHandle and ConsumerHandle
// refers to. It wraps a ring.Ring with a single mutex and two condition
// variables, and tracks producer/consumer refcounts to implement blocking
// push/pop and deterministic shutdown (spec.md §§3-4.2).
//
// Queue is not constructed directly; use New, which returns the initial
// producer/consumer handle pair.
type Queue struct {
	elemSize int
	maxCap   int

	mu         sync.Mutex
	justPushed sync.Cond
	justPopped sync.Cond

	ring *ring.Ring // nil once the last consumer has released (spec.md §3, buffer freed early)

	producerRefcount int
	consumerRefcount int

	closeOnce sync.Once
	closed    chan struct{}

	logger zerolog.Logger
}

// ElemSize returns the fixed element size, in bytes, fixed at construction.
// It may be read without the lock (spec.md §5, "Shared resources").
func (q *Queue) ElemSize() int { return q.elemSize }

// MaxCap returns the bounded capacity ceiling, in elements. It may be read
// without the lock.
func (q *Queue) MaxCap() int { return q.maxCap }

// Closed returns a channel that is closed exactly when the last consumer
// handle is released — the observable "end of pipe" signal spec.md §9
// invites as an alternative to silently dropping subsequent pushes.
// Producers may select on it instead of blindly calling Push into the
// void.
func (q *Queue) Closed() <-chan struct{} { return q.closed }

// New constructs a Queue and returns its initial producer and consumer
// handle (spec.md §3: "A fresh Queue starts at 1" for both refcounts). A
// limit of 0 makes the queue unbounded: max_cap is set to a
// memory-aware ceiling (sizing.go) rather than left as a literal "no
// limit", so a single runaway producer can't exhaust the process.
// elemSize must be positive; New panics otherwise (a zero-sized element is
// a programming error, not a runtime condition — spec.md §7,
// InvalidUsage).
func New(elemSize, limit int, opts ...QueueOption) (_ *ProducerHandle, _ *ConsumerHandle, err error) {
	if elemSize <= 0 {
		panic(`ringqueue: New: elemSize must be positive`)
	}
	if limit < 0 {
		panic(`ringqueue: New: limit must be >= 0`)
	}

	cfg := newQueueConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.tuneRuntime {
		tuneRuntime(cfg.logger)
	}

	maxCap := limit
	if maxCap == 0 {
		maxCap = defaultUnlimitedCap(elemSize)
	}
	maxCap = ring.NextPow2(maxOf(maxCap, cfg.minCap))

	minCap := cfg.minCap
	if minCap > maxCap {
		minCap = maxCap
	}

	q := &Queue{
		elemSize:         elemSize,
		maxCap:           maxCap,
		producerRefcount: 1,
		consumerRefcount: 1,
		closed:           make(chan struct{}),
		logger:           cfg.logger,
	}
	q.justPushed.L = &q.mu
	q.justPopped.L = &q.mu

	defer recoverAlloc(&err)
	q.ring = ring.New(elemSize, minCap, maxCap)

	q.logger.Debug().
		Int(`elem_size`, elemSize).
		Int(`max_cap`, maxCap).
		Int(`min_cap`, minCap).
		Msg(`ringqueue: queue constructed`)

	return &ProducerHandle{q: q}, &ConsumerHandle{q: q}, nil
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Reserve raises min_cap to min(count, max_cap), growing the buffer now if
// needed so future pushes up to count elements don't trigger a
// reallocation. Passing 0 resets min_cap to DefaultMinCap (clamped to
// max_cap), whatever min_cap WithMinCap gave New.
// Reserve is a no-op if count <= the currently buffered element count.
func (q *Queue) Reserve(count int) {
	if count < 0 {
		panic(`ringqueue: Reserve: count must be >= 0`)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ring == nil {
		return // buffer already freed; nothing to reserve into
	}
	if count == 0 {
		q.ring.SetMinCap(DefaultMinCap)
		return
	}
	if count <= q.ring.Len() {
		return
	}
	if count > q.maxCap {
		count = q.maxCap
	}
	q.ring.SetMinCap(count)
}

func (q *Queue) dupProducer() *ProducerHandle {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.producerRefcount == 0 {
		panic(`ringqueue: DupProducer: no producer remains to duplicate`)
	}
	q.producerRefcount++
	return &ProducerHandle{q: q}
}

func (q *Queue) dupConsumer() *ConsumerHandle {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.consumerRefcount == 0 {
		panic(`ringqueue: DupConsumer: no consumer remains to duplicate`)
	}
	q.consumerRefcount++
	return &ConsumerHandle{q: q}
}

func (q *Queue) releaseProducer() {
	q.mu.Lock()
	if q.producerRefcount == 0 {
		q.mu.Unlock()
		panic(`ringqueue: ProducerHandle.Release: producer refcount already zero`)
	}
	q.producerRefcount--
	last := q.producerRefcount == 0
	q.mu.Unlock()

	if last {
		// wake every consumer blocked waiting for more data: there will
		// never be any more, so they must re-evaluate end-of-stream.
		q.mu.Lock()
		q.justPushed.Broadcast()
		q.mu.Unlock()
		q.logger.Debug().Msg(`ringqueue: last producer released`)
	}
}

func (q *Queue) releaseConsumer() {
	q.mu.Lock()
	if q.consumerRefcount == 0 {
		q.mu.Unlock()
		panic(`ringqueue: ConsumerHandle.Release: consumer refcount already zero`)
	}
	q.consumerRefcount--
	last := q.consumerRefcount == 0
	if last {
		q.ring = nil // free the buffer immediately; further pushes are no-ops
	}
	q.mu.Unlock()

	if last {
		q.closeOnce.Do(func() { close(q.closed) })
		// wake every producer blocked waiting for space: the buffer is
		// gone, so further pushes must observe consumerRefcount == 0 and
		// return instead of waiting forever.
		q.mu.Lock()
		q.justPopped.Broadcast()
		q.mu.Unlock()
		q.logger.Debug().Msg(`ringqueue: last consumer released; buffer freed`)
	}
}

// push implements spec.md §4.2's push contract as an explicit loop rather
// than the source's tail recursion (§9, "Recursive push").
func (q *Queue) push(src []byte) {
	if len(src)%q.elemSize != 0 {
		panic(fmt.Sprintf(`ringqueue: Push: len(src))=%d is not a multiple of elem size %d`, len(src), q.elemSize))
	}

	remaining := len(src) / q.elemSize
	if remaining == 0 {
		return
	}
	offset := 0

	for remaining > 0 {
		q.mu.Lock()

		for q.ring != nil && q.ring.Len() == q.maxCap && q.consumerRefcount > 0 {
			q.justPopped.Wait()
		}

		if q.consumerRefcount == 0 || q.ring == nil {
			q.mu.Unlock()
			return // buffer is gone: drop silently (spec.md §7, ConsumerGone)
		}

		free := q.maxCap - q.ring.Len()
		admitted := remaining
		if admitted > free {
			admitted = free
		}

		if admitted > 0 {
			if !q.ring.Grow(q.ring.Len() + admitted) {
				// can't happen: admitted was computed from maxCap headroom,
				// and Grow only fails when asked to exceed maxCap.
				panic(`ringqueue: Push: invariant violated, grow refused within max_cap`)
			}
			start := offset * q.elemSize
			end := (offset + admitted) * q.elemSize
			q.ring.PushBytes(src[start:end], admitted)
		}

		q.mu.Unlock()
		q.justPushed.Broadcast()

		offset += admitted
		remaining -= admitted
	}
}

// pop implements spec.md §4.2's pop contract.
func (q *Queue) pop(dst []byte) (admitted int) {
	if len(dst)%q.elemSize != 0 {
		panic(fmt.Sprintf(`ringqueue: Pop: len(dst)=%d is not a multiple of elem size %d`, len(dst), q.elemSize))
	}

	count := len(dst) / q.elemSize
	if count > q.maxCap {
		count = q.maxCap
	}
	if count == 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.bufferedLocked() < count && q.producerRefcount > 0 {
		q.justPushed.Wait()
	}

	admitted = count
	if buffered := q.bufferedLocked(); admitted > buffered {
		admitted = buffered
	}

	if admitted > 0 {
		q.ring.PopBytes(dst[:admitted*q.elemSize], admitted)
		q.ring.MaybeShrink()
	}

	q.justPopped.Broadcast()
	return admitted
}

// bufferedLocked returns the number of elements currently in the ring. The
// caller must hold q.mu. It is safe even after the buffer has been freed
// (returns 0), since a Queue with no consumer can have no caller left able
// to Pop from it anyway, but pop's wait-loop condition still evaluates it
// once on the way in.
func (q *Queue) bufferedLocked() int {
	if q.ring == nil {
		return 0
	}
	return q.ring.Len()
}
