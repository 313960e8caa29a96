package ringqueue

import "sync/atomic"

// ProducerHandle is a refcounted capability to push elements onto a Queue.
// It carries no state of its own beyond a reference to the shared Queue and
// a release guard; all mutable state lives on the Queue, as spec.md's
// design notes prescribe (§9, "Handle type distinction").
//
// A ProducerHandle must not be used concurrently with its own Release, but
// distinct handles (including handles obtained from DupProducer) may be
// used from different goroutines simultaneously — the Queue's single
// mutex serializes all of it.
type ProducerHandle struct {
	q        *Queue
	released atomic.Bool
}

// ConsumerHandle is the consumer-side counterpart of ProducerHandle.
type ConsumerHandle struct {
	q        *Queue
	released atomic.Bool
}

// Queue returns the handle's underlying Queue, e.g. to call Reserve,
// DupProducer/DupConsumer, or Closed.
func (h *ProducerHandle) Queue() *Queue { return h.q }

// Queue returns the handle's underlying Queue.
func (h *ConsumerHandle) Queue() *Queue { return h.q }

// DupProducer duplicates this handle, returning a new ProducerHandle onto
// the same Queue and incrementing the producer refcount. It panics if this
// handle's queue has no remaining producer handle to duplicate from (i.e.
// the last producer already released — spec.md's refcounts are monotone
// within a role, so resurrecting the producer side is a programming
// error).
func (h *ProducerHandle) DupProducer() *ProducerHandle {
	return h.q.dupProducer()
}

// DupConsumer duplicates this handle, returning a new ConsumerHandle onto
// the same Queue and incrementing the consumer refcount.
func (h *ConsumerHandle) DupConsumer() *ConsumerHandle {
	return h.q.dupConsumer()
}

// Push pushes len(src)/ElemSize() elements from src into the queue,
// blocking while the queue is at capacity and at least one consumer
// remains. len(src) must be a multiple of ElemSize(); Push panics
// otherwise, or if src is nil and nonzero in length is implied (a nil src
// with a derived length of zero is accepted as a no-op, per spec.md §4.2
// push step 1).
//
// If every consumer handle has been released, Push returns immediately
// without copying anything: the buffer has already been freed, and the
// producer cannot meaningfully be told (spec.md §7, ConsumerGone). Callers
// that want an observable signal instead of a silent drop should select on
// Queue.Closed.
func (h *ProducerHandle) Push(src []byte) {
	h.q.push(src)
}

// Pop copies up to len(dst)/ElemSize() elements into dst, blocking until
// that many are available or every producer handle has been released. The
// request is first clamped to MaxCap() elements. len(dst) must be a
// multiple of ElemSize(); Pop panics otherwise.
//
// The return value is the number of elements actually written; apart from
// the MaxCap() clamp, it is less than requested only once every producer
// is gone, and a return of 0 signals the stream is over.
func (h *ConsumerHandle) Pop(dst []byte) (admitted int) {
	return h.q.pop(dst)
}

// Release releases this producer handle, decrementing the Queue's producer
// refcount. Releasing an already-released handle panics (spec.md §7,
// InvalidUsage).
func (h *ProducerHandle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic(`ringqueue: ProducerHandle: released twice`)
	}
	h.q.releaseProducer()
}

// Release releases this consumer handle, decrementing the Queue's consumer
// refcount. If this was the last consumer handle, the Queue's buffer is
// freed immediately and Queue.Closed begins reporting closed. Releasing an
// already-released handle panics.
func (h *ConsumerHandle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic(`ringqueue: ConsumerHandle: released twice`)
	}
	h.q.releaseConsumer()
}
