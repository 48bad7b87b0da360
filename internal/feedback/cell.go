package feedback

import "sync"

// Cell is the client-side shared (Ack, FeedbackPacket) pair: the decoder's
// hot path accumulates into it via TryAdd (never blocks), and the feedback
// timer thread drains it once per quantum via Drain (blocks briefly; it
// competes only with the decoder's try-lock, never with itself).
type Cell struct {
	mu      sync.Mutex
	fb      FeedbackPacket
	lastSeq uint16
	haveSeq bool
}

// NewCell returns a Cell with TimeQuantum pre-set to quantumMs.
func NewCell(quantumMs uint16) *Cell {
	return &Cell{fb: FeedbackPacket{TimeQuantum: quantumMs}}
}

// TryAdd accumulates delta into the cell's counters without blocking. It
// returns false if the feedback timer is mid-drain; the caller should hold
// delta and retry on its next datagram rather than lose the counts.
func (c *Cell) TryAdd(delta FeedbackPacket, lastSeq uint16) bool {
	if !c.mu.TryLock() {
		return false
	}
	defer c.mu.Unlock()
	c.fb.TotalBlocks += delta.TotalBlocks
	c.fb.OutOfOrderBlocks += delta.OutOfOrderBlocks
	c.fb.TotalPackets += delta.TotalPackets
	c.fb.LostPackets += delta.LostPackets
	c.fb.ECCDecoderFailures += delta.ECCDecoderFailures
	c.fb.AverageBufferOccupancy = delta.AverageBufferOccupancy
	c.lastSeq = lastSeq
	c.haveSeq = true
	return true
}

// Drain locks the cell, snapshots the FeedbackPacket and last-seen sequence
// number, zeros the per-quantum counters, and returns the snapshot.
func (c *Cell) Drain(quantumMs uint16) (FeedbackPacket, uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.fb
	seq := c.lastSeq
	c.fb = FeedbackPacket{TimeQuantum: quantumMs}
	return snap, seq
}
