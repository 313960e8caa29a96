package ringqueue

import "github.com/rs/zerolog"

// queueConfig is the internal configuration type assembled by New from the
// supplied QueueOption values, the same pattern microbatch.BatcherConfig
// and longpoll.ChannelConfig use for their public-facing config structs —
// except here the config itself is private, and only reachable through
// functional options, since there is no reason for a caller to construct
// one directly.
type queueConfig struct {
	minCap      int
	logger      zerolog.Logger
	tuneRuntime bool
}

// QueueOption configures a Queue at construction time, via New.
type QueueOption func(c *queueConfig)

func newQueueConfig() *queueConfig {
	return &queueConfig{
		minCap:      DefaultMinCap,
		logger:      nopLogger,
		tuneRuntime: true,
	}
}

// WithMinCap overrides spec.md §3's default min_cap (32). count must be
// positive; WithMinCap panics otherwise, consistent with this library's
// policy of panicking on programming errors rather than returning them.
func WithMinCap(count int) QueueOption {
	if count <= 0 {
		panic(`ringqueue: WithMinCap: count must be positive`)
	}
	return func(c *queueConfig) {
		c.minCap = count
	}
}

// WithoutRuntimeTuning disables the automatic, best-effort GOMAXPROCS/
// GOMEMLIMIT tuning New otherwise performs once per process. Intended for
// processes that already manage these themselves.
func WithoutRuntimeTuning() QueueOption {
	return func(c *queueConfig) {
		c.tuneRuntime = false
	}
}
