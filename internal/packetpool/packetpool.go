// Package packetpool implements the pre-allocated pool of MTU-sized buffers
// that the media receiver loop recycles instead of allocating per datagram
// (spec.md section 4.6, section 9 "Zero-copy UDP"). It is adapted from the
// teacher's pkg/multibuffer.MultiBuffer: a fixed round-robin buffer cycle
// that also reports its depth. The pool does not track which buffers are
// still in use and does not report exhaustion.
package packetpool

import "sync/atomic"

// Pool is a fixed-depth, fixed-size pool of byte buffers recycled by a
// single producer. It never allocates after New.
type Pool struct {
	buffers [][]byte
	cur     uint64
}

// New allocates a Pool of depth buffers, each bufSize bytes.
func New(depth, bufSize int) *Pool {
	buffers := make([][]byte, depth)
	for i := range buffers {
		buffers[i] = make([]byte, bufSize)
	}
	return &Pool{buffers: buffers}
}

// Next returns the next buffer in the pool, overwriting whatever its
// previous occupant left behind. The pool never blocks or reports
// exhaustion by itself: depth bounds how far a producer can race ahead of
// a consumer before data is silently overwritten, which is why the media
// receiver loop (internal/client) pairs this with an explicit in-flight
// counter and drops instead of calling Next when the counter says the pool
// is full.
func (p *Pool) Next() []byte {
	idx := atomic.AddUint64(&p.cur, 1) - 1
	return p.buffers[idx%uint64(len(p.buffers))]
}

// Depth returns the number of buffers backing the pool.
func (p *Pool) Depth() int {
	return len(p.buffers)
}
