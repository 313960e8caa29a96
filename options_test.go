package ringqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMinCap_PanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { WithMinCap(0) })
	assert.Panics(t, func() { WithMinCap(-1) })
}

func TestWithMinCap_AppliesToRing(t *testing.T) {
	p, c, err := New(1, 0, WithMinCap(2))
	require.NoError(t, err)
	defer p.Release()
	defer c.Release()

	assert.Equal(t, 2, p.Queue().ring.Cap())
}

func TestWithoutRuntimeTuning_DoesNotPanic(t *testing.T) {
	p, c, err := New(1, 0, WithoutRuntimeTuning())
	require.NoError(t, err)
	p.Release()
	c.Release()
}
