package feedback

import "sync"

// BitrateCell is the mutex-protected target-bitrate shared resource from
// spec.md section 5: the AIMD Controller is its only writer, the media
// sender loop is its only reader. Reads and writes are both cheap locked
// accesses; there's no hot-path pressure here the way there is on Cell, so
// a plain mutex (not try-lock) is enough.
type BitrateCell struct {
	mu    sync.Mutex
	value uint32
	gen   uint64
}

// NewBitrateCell returns a BitrateCell initialized to the configured
// starting bitrate.
func NewBitrateCell(initial uint32) *BitrateCell {
	return &BitrateCell{value: initial}
}

// Get returns the current bitrate and a generation counter that increments
// on every Set, so the sender can cheaply detect "changed since last tick"
// without comparing the value itself.
func (c *BitrateCell) Get() (uint32, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.gen
}

// Set publishes a new bitrate.
func (c *BitrateCell) Set(v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.gen++
}
