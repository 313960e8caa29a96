// Package ringqueue implements a thread-safe, bounded or unbounded
// multi-producer/multi-consumer in-process queue of fixed-size opaque
// records. Producers push batches of elements; consumers pop batches;
// pushers block while the queue is full, poppers block while it is empty.
//
// Producer and consumer access is mediated by distinct, refcounted handles
// (ProducerHandle, ConsumerHandle) so the queue can shut down
// deterministically: once every producer handle is released, consumers
// drain whatever remains and then observe end-of-stream; once every
// consumer handle is released, the backing buffer is freed immediately and
// subsequent pushes become silent no-ops.
//
// See the pipeline subpackage for chaining several Queues together with a
// worker goroutine per stage.
package ringqueue
