// Package ring implements the resizable circular byte buffer that backs a
// Queue. It knows nothing about producers, consumers, or blocking — it is a
// single-threaded, byte-wise FIFO with wrap-around semantics and a grow/
// shrink sizing policy. Callers (the queue package) are responsible for all
// synchronization.
package ring

import "math/bits"

// Ring is a circular byte buffer storing capacity*ElemSize bytes, addressed
// in units of ElemSize. It is not safe for concurrent use.
type Ring struct {
	elemSize int
	minCap   int
	maxCap   int // in elements; 0 means unbounded (no clamp applied)
	buf      []byte
	begin    int // byte offset of the oldest element
	end      int // byte offset one past the newest element
	count    int // elements currently buffered
}

// New constructs a Ring for elements of elemSize bytes, with an initial
// capacity of minCap elements (clamped to maxCap if maxCap is nonzero).
// elemSize and minCap must be positive; maxCap, if nonzero, must be >=
// minCap. New panics on invalid arguments — these are programming errors,
// not runtime conditions.
func New(elemSize, minCap, maxCap int) *Ring {
	if elemSize <= 0 {
		panic(`ring: elemSize must be positive`)
	}
	if minCap <= 0 {
		panic(`ring: minCap must be positive`)
	}
	if maxCap != 0 && maxCap < minCap {
		panic(`ring: maxCap must be zero or >= minCap`)
	}

	cap := minCap
	if maxCap != 0 && cap > maxCap {
		cap = maxCap
	}

	return &Ring{
		elemSize: elemSize,
		minCap:   minCap,
		maxCap:   maxCap,
		buf:      make([]byte, cap*elemSize),
	}
}

// Len returns the number of buffered elements.
func (r *Ring) Len() int { return r.count }

// Cap returns the current capacity, in elements.
func (r *Ring) Cap() int { return len(r.buf) / r.elemSize }

// wrapped reports whether the occupied region straddles the end of buf.
func (r *Ring) wrapped() bool { return r.begin > r.end }

// bounds splits the occupied region into at most two contiguous byte slices
// of buf: [i1:l1] followed by [0:l2]. l2 is zero when the region does not
// wrap.
func (r *Ring) bounds() (i1, l1, l2 int) {
	if r.count == 0 {
		return
	}
	i1 = r.begin
	if r.begin < r.end {
		// begin == end with count > 0 is a full ring, which wraps.
		l1 = r.end
		return
	}
	l1 = len(r.buf)
	l2 = r.end
	return
}

// PushBytes appends n elements from src (len(src) must equal n*elemSize) to
// the ring, growing first if necessary. It panics if the ring cannot hold
// Len()+n elements even after growth (the caller is responsible for
// sizing maxCap such that this cannot happen for admissible pushes).
func (r *Ring) PushBytes(src []byte, n int) {
	if n == 0 {
		return
	}
	if len(src) != n*r.elemSize {
		panic(`ring: push: src length does not match n*elemSize`)
	}
	if r.count+n > r.Cap() && !r.Grow(r.count+n) {
		panic(`ring: push: insufficient capacity within maxCap`)
	}

	width := len(r.buf)
	if !r.wrapped() && r.begin <= r.end {
		// unwrapped (or empty): may need to wrap writing from end.
		tail := width - r.end
		if len(src) <= tail {
			copy(r.buf[r.end:], src)
		} else {
			copy(r.buf[r.end:], src[:tail])
			copy(r.buf, src[tail:])
		}
	} else {
		// already wrapped: a single contiguous write from end suffices,
		// since the free region [end, begin) cannot itself wrap.
		copy(r.buf[r.end:], src)
	}

	r.end = (r.end + len(src)) % width
	r.count += n
}

// PopBytes copies n elements (n*elemSize bytes) from the front of the ring
// into dst, which must be at least that long. It panics if n exceeds the
// buffered element count.
func (r *Ring) PopBytes(dst []byte, n int) {
	if n == 0 {
		return
	}
	if n > r.count {
		panic(`ring: pop: n exceeds buffered element count`)
	}
	nbytes := n * r.elemSize
	if len(dst) < nbytes {
		panic(`ring: pop: dst too small`)
	}

	width := len(r.buf)
	tail := width - r.begin
	if nbytes <= tail {
		copy(dst, r.buf[r.begin:r.begin+nbytes])
	} else {
		copy(dst, r.buf[r.begin:])
		copy(dst[tail:], r.buf[:nbytes-tail])
	}

	r.begin = (r.begin + nbytes) % width
	r.count -= n
}

// NextPow2 rounds n up to the next power of two, saturating at the maximum
// representable int when rounding would overflow. Defined only for n >= 1.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	if bits.OnesCount(uint(n)) == 1 {
		return n
	}
	shift := bits.Len(uint(n))
	if shift >= bits.UintSize-1 {
		return maxInt
	}
	return 1 << shift
}

const maxInt = int(^uint(0) >> 1)

// Grow ensures the ring can hold at least need elements, rounding up to the
// next power of two and clamping to maxCap. It is a no-op if the ring
// already has sufficient capacity. Returns false if maxCap is insufficient
// to satisfy need (the caller must treat this as backpressure, not as an
// allocation failure).
func (r *Ring) Grow(need int) bool {
	if need <= r.Cap() {
		return true
	}

	target := NextPow2(need)
	if r.maxCap != 0 && target > r.maxCap {
		target = r.maxCap
	}
	if target < need {
		return false
	}
	if target <= r.Cap() {
		return true
	}

	r.resize(target)
	return true
}

// MaybeShrink applies the shrink/hysteresis policy from the package's
// design: if, after a pop, count <= cap/4, shrink capacity to cap/2 (never
// below minCap). No-op if the ring is already at minCap or the threshold
// isn't met.
func (r *Ring) MaybeShrink() {
	cap := r.Cap()
	if cap <= r.minCap {
		return
	}
	if r.count > cap/4 {
		return
	}
	target := cap / 2
	if target < r.minCap {
		target = r.minCap
	}
	if target >= cap {
		return
	}
	r.resize(target)
}

// SetMinCap raises or lowers the floor on capacity used by MaybeShrink and
// as the lower clamp for Grow/resize. If newMin exceeds the current
// capacity, the buffer is grown immediately (clamped to maxCap).
func (r *Ring) SetMinCap(newMin int) {
	if r.maxCap != 0 && newMin > r.maxCap {
		newMin = r.maxCap
	}
	if newMin <= 0 {
		newMin = 1
	}
	r.minCap = newMin
	if newMin > r.Cap() {
		r.resize(newMin)
	}
}

// resize reallocates the buffer to newCap elements, refusing (no-op) if
// newCap can't hold the currently buffered elements or is below minCap.
// newCap is first clamped to maxCap.
func (r *Ring) resize(newCap int) {
	if r.maxCap != 0 && newCap > r.maxCap {
		newCap = r.maxCap
	}
	if newCap <= r.count || newCap < r.minCap {
		return
	}

	fresh := make([]byte, newCap*r.elemSize)
	if r.count > 0 {
		i1, l1, l2 := r.bounds()
		n := copy(fresh, r.buf[i1:l1])
		if l2 > 0 {
			copy(fresh[n:], r.buf[:l2])
		}
	}

	r.buf = fresh
	r.begin = 0
	r.end = r.count * r.elemSize
	if r.end == len(r.buf) {
		r.end = 0
	}
}
