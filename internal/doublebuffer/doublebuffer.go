// Package doublebuffer implements the single-producer/single-consumer frame
// handoff between the media receiver loop and the UI (spec.md section 4.7).
// The locking style -- a small mutex-guarded structure with explicit
// lease/release calls instead of channels -- follows the teacher's
// pkg/ringbuffer, generalized from a blocking producer/consumer queue into
// a non-blocking two-slot swap, since spec.md section 5 requires the hot
// path to never block on the UI.
package doublebuffer

import "sync"

// Frame is one decoded, color-converted picture ready for presentation.
type Frame struct {
	Width  int
	Height int
	RGBA   []byte
}

func newFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, RGBA: make([]byte, width*height*4)}
}

// DoubleBuffer holds exactly two Frame slots: front, readable by the UI, and
// back, writable by the decoder. It starts uninitialized; the first
// successful Back() call sizes both slots from the caller-supplied
// dimensions.
type DoubleBuffer struct {
	backMu  sync.Mutex
	frontMu sync.RWMutex

	initMu      sync.Mutex
	initialized bool

	slots    [2]*Frame
	frontIdx int
}

// New returns an uninitialized DoubleBuffer.
func New() *DoubleBuffer {
	return &DoubleBuffer{}
}

// ensureSized lazily allocates both slots at (width, height) the first time
// it's called, and is a no-op afterward. It is serialized against Swap via
// the same init lock so initialization and a concurrent swap never race.
func (db *DoubleBuffer) ensureSized(width, height int) {
	db.initMu.Lock()
	defer db.initMu.Unlock()
	if db.initialized {
		return
	}
	db.slots[0] = newFrame(width, height)
	db.slots[1] = newFrame(width, height)
	db.initialized = true
}

// Back acquires the writer lease on the back slot and returns it, sizing the
// buffer on first use. It does not block: if a swap is in progress it
// returns ok=false immediately so the caller can skip this tick rather than
// stall the decoder.
func (db *DoubleBuffer) Back(width, height int) (frame *Frame, ok bool) {
	db.ensureSized(width, height)
	if !db.backMu.TryLock() {
		return nil, false
	}
	return db.slots[1-db.frontIdx], true
}

// ReleaseBack releases the writer lease acquired by Back.
func (db *DoubleBuffer) ReleaseBack() {
	db.backMu.Unlock()
}

// Swap exchanges the front and back slot pointers. It requires exclusive
// access to both slots and does not block: if either slot is currently
// leased, or initialization is in progress, it returns false and the caller
// should retry next tick.
func (db *DoubleBuffer) Swap() bool {
	if !db.backMu.TryLock() {
		return false
	}
	defer db.backMu.Unlock()
	if !db.frontMu.TryLock() {
		return false
	}
	defer db.frontMu.Unlock()
	if !db.initMu.TryLock() {
		return false
	}
	defer db.initMu.Unlock()

	db.frontIdx = 1 - db.frontIdx
	return true
}

// Front acquires the shared reader lease on the front slot. It returns
// ok=false if the buffer has never been initialized (no frame decoded yet).
func (db *DoubleBuffer) Front() (frame *Frame, ok bool) {
	db.frontMu.RLock()
	db.initMu.Lock()
	initialized := db.initialized
	db.initMu.Unlock()
	if !initialized {
		db.frontMu.RUnlock()
		return nil, false
	}
	return db.slots[db.frontIdx], true
}

// ReleaseFront releases the reader lease acquired by Front.
func (db *DoubleBuffer) ReleaseFront() {
	db.frontMu.RUnlock()
}
