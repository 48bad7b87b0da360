package fec

// Counters accumulates the per-quantum statistics spec.md section 3 puts on
// the wire FeedbackPacket. The decoder mutates these directly on its single
// hot-path goroutine and they only ever grow; the media receiver loop
// (internal/client) publishes the difference from its last published
// snapshot into the feedback cell under a try-lock (spec.md section 4.6,
// section 9) and never resets them.
type Counters struct {
	TotalBlocks        uint32
	OutOfOrderBlocks   uint32
	TotalPackets       uint32
	LostPackets        uint32
	ECCDecoderFailures uint32
}

// Add accumulates delta into c.
func (c *Counters) Add(delta Counters) {
	c.TotalBlocks += delta.TotalBlocks
	c.OutOfOrderBlocks += delta.OutOfOrderBlocks
	c.TotalPackets += delta.TotalPackets
	c.LostPackets += delta.LostPackets
	c.ECCDecoderFailures += delta.ECCDecoderFailures
}

// Reset zeros c in place.
func (c *Counters) Reset() {
	*c = Counters{}
}
