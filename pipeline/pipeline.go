// Package pipeline composes several ringqueue.Queue instances by spawning
// one worker goroutine per stage, each popping a batch from its input
// queue, applying a transform, and pushing the result into its output
// queue. It is a thin external collaborator over ringqueue, per spec.md
// §4.3: it holds no buffer or lock of its own.
package pipeline

import (
	"context"
	"fmt"

	"github.com/joeycumines/go-ringqueue"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// batchSize is the small fixed constant spec.md §4.3 calls B: the number
// of elements a stage worker pops per iteration.
const batchSize = 32

// Proc is the per-stage transform, invoked serially on the stage's own
// goroutine. It receives a batch popped from the stage's input queue (its
// length is a multiple of the input elem_size, and at most batchSize
// elements), the producer handle for the stage's output queue, and the
// pipeline's auxiliary value. It may push any number of elements into out,
// including zero or more than len(batch) implies. Returning an error
// tears down every other stage (see Pipeline.Wait).
//
// Proc must not block on external resources in a way that could deadlock
// the pipeline; ringqueue's bounded-capacity backpressure is the only
// blocking the pipeline itself introduces.
type Proc func(batch []byte, out *ringqueue.ProducerHandle, aux any) error

// Stage describes one transform step: the element size of the queue it
// produces into, and the function that produces them.
type Stage struct {
	// ElemSize is the byte size of one element of this stage's output
	// queue.
	ElemSize int

	// Proc is invoked once per popped batch from the prior stage (or, for
	// the first stage, from the head queue).
	Proc Proc

	// Aux, if non-nil, overrides the pipeline-wide auxiliary value for
	// this stage only (spec.md §9, "Callback with auxiliary data": "a
	// re-architecture may split per-stage auxiliaries").
	Aux any

	// Limit bounds this stage's output queue the same way ringqueue.New's
	// limit parameter does; 0 means unbounded.
	Limit int
}

// Pipeline owns the intermediate queues and stage-worker goroutines
// created by New. Callers drain the tail consumer handle and release the
// head producer handle as usual; Wait (or Close) should be called
// afterward to reclaim the worker goroutines and surface any Proc error.
type Pipeline struct {
	group  *errgroup.Group
	cancel context.CancelFunc
	logger zerolog.Logger
}

// PipelineOption configures a Pipeline at construction time.
type PipelineOption func(c *config)

type config struct {
	aux    any
	logger zerolog.Logger
}

// WithAux supplies the pipeline-wide auxiliary value passed to every
// stage's Proc (unless overridden per-stage via Stage.Aux). Per spec.md
// §9, aux "must be thread-safe because multiple stage threads hold it
// concurrently" whenever more than one stage is configured.
func WithAux(aux any) PipelineOption {
	return func(c *config) { c.aux = aux }
}

// WithLogger attaches a structured logger used to report stage start/stop
// and recovered panics. Defaults to a disabled logger.
func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(c *config) { c.logger = logger }
}

// New validates stages eagerly (spec.md §9, "Variadic pipeline builder":
// "Validation moves from runtime to construction") and, if valid, builds
// len(stages)+1 queues and spawns one worker goroutine per stage. It
// returns the head producer handle, the tail consumer handle, and a
// Pipeline used to wait for the stage workers to finish.
//
// New panics if stages is empty, any Stage.ElemSize is <= 0, or any
// Stage.Proc is nil — these are construction-time programming errors, not
// runtime conditions.
func New(headElemSize int, stages []Stage, opts ...PipelineOption) (*ringqueue.ProducerHandle, *ringqueue.ConsumerHandle, *Pipeline, error) {
	if headElemSize <= 0 {
		panic(`pipeline: New: headElemSize must be positive`)
	}
	if len(stages) == 0 {
		panic(`pipeline: New: at least one stage is required`)
	}
	for i, s := range stages {
		if s.ElemSize <= 0 {
			panic(fmt.Sprintf(`pipeline: New: stage %d: ElemSize must be positive`, i))
		}
		if s.Proc == nil {
			panic(fmt.Sprintf(`pipeline: New: stage %d: Proc must not be nil`, i))
		}
	}

	cfg := &config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}

	type link struct {
		producer *ringqueue.ProducerHandle
		consumer *ringqueue.ConsumerHandle
	}

	links := make([]link, len(stages)+1)
	elemSize := headElemSize
	for i := range links {
		p, c, err := ringqueue.New(elemSize, stageLimit(stages, i))
		if err != nil {
			// unwind anything already constructed before surfacing the error.
			for j := 0; j < i; j++ {
				links[j].producer.Release()
				links[j].consumer.Release()
			}
			return nil, nil, nil, fmt.Errorf(`pipeline: New: stage %d: %w`, i, err)
		}
		links[i] = link{producer: p, consumer: c}
		if i < len(stages) {
			elemSize = stages[i].ElemSize
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &Pipeline{group: group, cancel: cancel, logger: cfg.logger}

	for i, stage := range stages {
		in := links[i].consumer
		out := links[i+1].producer
		stage := stage
		idx := i

		aux := cfg.aux
		if stage.Aux != nil {
			aux = stage.Aux
		}

		group.Go(func() error {
			return runStage(ctx, idx, in, out, stage.Proc, aux, cfg.logger)
		})
	}

	return links[0].producer, links[len(links)-1].consumer, p, nil
}

func stageLimit(stages []Stage, queueIndex int) int {
	if queueIndex == 0 {
		return 0
	}
	return stages[queueIndex-1].Limit
}

// runStage pops batches of up to batchSize elements from in, applies proc,
// and loops until in.Pop returns 0 (end-of-stream, spec.md §4.3), then
// releases both handles. A panic inside proc is recovered and converted
// into an error, so one failing stage doesn't crash the whole process —
// it tears down the pipeline's errgroup instead.
func runStage(ctx context.Context, idx int, in *ringqueue.ConsumerHandle, out *ringqueue.ProducerHandle, proc Proc, aux any, logger zerolog.Logger) (err error) {
	defer in.Release()
	defer out.Release()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Int(`stage`, idx).Interface(`panic`, r).Msg(`pipeline: stage panic recovered`)
			err = fmt.Errorf(`pipeline: stage %d: panic: %v`, idx, r)
		}
	}()

	elemSize := in.Queue().ElemSize()
	buf := make([]byte, batchSize*elemSize)

	logger.Debug().Int(`stage`, idx).Msg(`pipeline: stage starting`)
	defer logger.Debug().Int(`stage`, idx).Msg(`pipeline: stage stopping`)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := in.Pop(buf)
		if n == 0 {
			return nil // upstream end-of-stream
		}

		if err := proc(buf[:n*elemSize], out, aux); err != nil {
			return fmt.Errorf(`pipeline: stage %d: %w`, idx, err)
		}
	}
}

// Wait blocks until every stage worker has exited (because its input
// queue reached end-of-stream, or because some stage returned an error,
// cancelling the rest), and returns the first error encountered, if any.
func (p *Pipeline) Wait() error {
	return p.group.Wait()
}

// Close cancels every stage worker's context and waits for them to exit.
// Per spec.md §5, ringqueue has no cancellation or timeout primitive of its
// own, so this is best-effort: a stage worker currently blocked inside
// Pop, with live upstream producers, only observes the cancellation on its
// next loop iteration — i.e. once that Pop call returns, which happens
// when a full batch arrives or the upstream end-of-stream is reached. Releasing
// every producer handle feeding the pipeline (the "release-of-all-handles"
// cancellation primitive spec.md §5 describes) is the prompt way to
// unblock a stalled Pop.
func (p *Pipeline) Close() error {
	p.cancel()
	return p.group.Wait()
}
