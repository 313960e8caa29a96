package ringqueue

import (
	"io"

	"github.com/rs/zerolog"
)

// nopLogger is the default, silent logger: a zerolog.Logger writing to
// io.Discard at a level above any in-use level, so log calls are as cheap
// as the zerolog fast path allows without requiring call sites to branch
// on whether logging was configured.
var nopLogger = zerolog.New(io.Discard).Level(zerolog.Disabled)

// WithLogger attaches a structured logger to a Queue, used to report
// construction, the release of the last producer or consumer handle, and
// skipped runtime tuning. Capacity growth and shrink are not logged.
// Pipelines take their own logger via pipeline.WithLogger. Logging is
// entirely diagnostic: nothing about correctness depends on it. Passing a
// disabled logger (the default) keeps the library silent, matching
// catrate.Limiter's no-logging-by-default posture.
func WithLogger(logger zerolog.Logger) QueueOption {
	return func(c *queueConfig) {
		c.logger = logger
	}
}
