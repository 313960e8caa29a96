package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PanicsOnInvalidArgs(t *testing.T) {
	assert.Panics(t, func() { New(0, 4, 0) }, "zero elemSize")
	assert.Panics(t, func() { New(1, 0, 0) }, "zero minCap")
	assert.Panics(t, func() { New(1, 8, 4) }, "maxCap below minCap")
}

func TestNew_InitialState(t *testing.T) {
	r := New(4, 32, 0)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 32, r.Cap())
}

func TestPushPop_RoundTrip(t *testing.T) {
	r := New(4, 32, 0)
	r.PushBytes([]byte{0x01, 0x02, 0x03, 0x04}, 1)
	r.PushBytes([]byte{0x05, 0x06, 0x07, 0x08}, 1)
	r.PushBytes([]byte{0x09, 0x0A, 0x0B, 0x0C}, 1)

	dst := make([]byte, 12)
	r.PopBytes(dst, 3)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, dst)
	assert.Equal(t, 0, r.Len())
}

func TestWrap(t *testing.T) {
	r := New(1, 4, 0)
	r.PushBytes([]byte("ABCD"), 4)
	require.Equal(t, 4, r.Len())

	dst := make([]byte, 2)
	r.PopBytes(dst, 2)
	assert.Equal(t, []byte("AB"), dst)

	r.PushBytes([]byte("EF"), 2)
	require.Equal(t, 4, r.Len())

	dst = make([]byte, 4)
	r.PopBytes(dst, 4)
	assert.Equal(t, []byte("CDEF"), dst)
	assert.Equal(t, 0, r.Len())
}

// TestWrap_PushAfterWrapStraddlePop pushes until the occupied region wraps,
// pops everything back out across the wrap point, and then pushes again.
// begin/end must stay in
// [0, width) throughout — regression for a bug where both PushBytes and
// PopBytes wrapped their cursor only on an exact landing on width, not on a
// split write/read that overshoots it.
func TestWrap_PushAfterWrapStraddlePop(t *testing.T) {
	r := New(1, 4, 0)
	r.PushBytes([]byte("ABCD"), 4)

	dst := make([]byte, 2)
	r.PopBytes(dst, 2) // begin=2; the pop of 4 below straddles the buffer end
	assert.Equal(t, []byte("AB"), dst)

	r.PushBytes([]byte("EF"), 2)
	dst = make([]byte, 4)
	r.PopBytes(dst, 4)
	assert.Equal(t, []byte("CDEF"), dst)
	require.Equal(t, 0, r.Len())
	assert.True(t, r.begin >= 0 && r.begin < len(r.buf))
	assert.True(t, r.end >= 0 && r.end < len(r.buf))

	// a further push must not panic with a slice-bounds error from a
	// cursor that was left past the end of buf.
	assert.NotPanics(t, func() { r.PushBytes([]byte("G"), 1) })
}

// TestPushBytes_SplitWriteWrapsEnd exercises the split-write branch of
// PushBytes directly: end starts close to width with fewer than len(src)
// bytes of tail room, so the write straddles the wrap point.
func TestPushBytes_SplitWriteWrapsEnd(t *testing.T) {
	r := New(1, 4, 4) // fixed capacity: minCap == maxCap == 4
	r.PushBytes([]byte("ABC"), 3)

	dst := make([]byte, 2)
	r.PopBytes(dst, 2) // begin=2, count=1 ("C" remains)
	assert.Equal(t, []byte("AB"), dst)

	// end=3, tail=1, len(src)=2: must split across the wrap.
	r.PushBytes([]byte("DE"), 2)
	require.Equal(t, 3, r.Len())
	assert.True(t, r.end >= 0 && r.end < len(r.buf), "end must stay in [0, width)")

	dst = make([]byte, 3)
	r.PopBytes(dst, 3)
	assert.Equal(t, []byte("CDE"), dst)
}

func TestGrow_NextPowerOfTwo(t *testing.T) {
	r := New(1, 4, 0)
	require.True(t, r.Grow(10))
	assert.Equal(t, 16, r.Cap())

	r.PushBytes([]byte("0123456789"), 10)
	assert.Equal(t, 10, r.Len())
}

func TestShrinkHysteresis(t *testing.T) {
	r := New(1, 4, 0)
	require.True(t, r.Grow(10))
	r.PushBytes([]byte("0123456789"), 10)
	require.Equal(t, 16, r.Cap())

	dst := make([]byte, 8)
	r.PopBytes(dst, 8)
	r.MaybeShrink()
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 8, r.Cap())

	dst = make([]byte, 1)
	r.PopBytes(dst, 1)
	r.MaybeShrink()
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 4, r.Cap())

	// already at minCap: further empty-ish pops must not reallocate again.
	buf := r.buf
	r.MaybeShrink()
	assert.Same(t, &buf[0], &r.buf[0])
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1023: 1024, 1024: 1024}
	for in, want := range cases {
		assert.Equalf(t, want, NextPow2(in), "NextPow2(%d)", in)
	}
	assert.Equal(t, maxInt, NextPow2(maxInt))
}

func TestGrow_RefusesPastMaxCap(t *testing.T) {
	r := New(1, 2, 2)
	assert.False(t, r.Grow(3))
	assert.Equal(t, 2, r.Cap())
}

func TestPushBytes_PanicsOnMismatchedLength(t *testing.T) {
	r := New(4, 32, 0)
	assert.Panics(t, func() { r.PushBytes([]byte{1, 2, 3}, 1) })
}

func TestPopBytes_PanicsOnExcessCount(t *testing.T) {
	r := New(4, 32, 0)
	assert.Panics(t, func() { r.PopBytes(make([]byte, 4), 1) })
}

func TestSetMinCap_GrowsImmediately(t *testing.T) {
	r := New(1, 4, 0)
	r.SetMinCap(64)
	assert.Equal(t, 64, r.Cap())
}

func TestSetMinCap_ClampedByMaxCap(t *testing.T) {
	r := New(1, 4, 16)
	r.SetMinCap(64)
	assert.Equal(t, 16, r.Cap())
}

func TestPushPop_WrapAcrossManyCycles(t *testing.T) {
	r := New(1, 4, 0)
	var pushed, popped []byte
	src := []byte("abcdefghijklmnopqrstuvwxyz")
	for i, b := range src {
		r.PushBytes([]byte{b}, 1)
		pushed = append(pushed, b)
		if i%3 == 1 && r.Len() > 0 {
			dst := make([]byte, 1)
			r.PopBytes(dst, 1)
			popped = append(popped, dst[0])
		}
	}
	for r.Len() > 0 {
		dst := make([]byte, 1)
		r.PopBytes(dst, 1)
		popped = append(popped, dst[0])
	}
	assert.Equal(t, pushed, popped)
}
