package assist

import (
	"sync"
)

// OutputRing keeps the tail of recent terminal output, used as context in
// assistant prompts. Bounded so commands like yes(1) or large cat outputs
// cannot exhaust memory.
type OutputRing struct {
	mu  sync.Mutex
	buf []byte
	max int
}

// NewOutputRing creates a ring keeping at most max bytes. A non-positive max
// falls back to 2KB.
func NewOutputRing(max int) *OutputRing {
	if max <= 0 {
		max = 2 * 1024
	}
	return &OutputRing{max: max}
}

// Write implements io.Writer. When the ring is full the oldest bytes are
// discarded.
func (r *OutputRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) >= r.max {
		r.buf = append(r.buf[:0], p[len(p)-r.max:]...)
		return len(p), nil
	}
	r.buf = append(r.buf, p...)
	if overflow := len(r.buf) - r.max; overflow > 0 {
		r.buf = append(r.buf[:0], r.buf[overflow:]...)
	}
	return len(p), nil
}

// String returns the buffered tail.
func (r *OutputRing) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.buf)
}

// Len returns the number of buffered bytes.
func (r *OutputRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Reset clears the ring.
func (r *OutputRing) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = r.buf[:0]
}
