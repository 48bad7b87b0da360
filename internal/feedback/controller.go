package feedback

// AIMD constants from spec.md section 4.8.
const (
	decreaseFactor  = 0.6
	congestionFloor = 0.001
	holdRangeLow    = 0.15
	holdRangeHigh   = 0.2
	increaseStepBps = 400_000
)

// Controller runs the additive-increase/multiplicative-decrease bitrate
// reaction described in spec.md section 4.8, grounded on the Rust
// BitrateController in original_source/ (net/src/feedback/controller.rs):
// the same three-way congestion/failure/hold/increase branch, the same
// constants. It is the sole writer of a BitrateCell; the media sender loop
// is the sole reader.
type Controller struct {
	cell *BitrateCell
}

// NewController returns a Controller publishing into cell.
func NewController(cell *BitrateCell) *Controller {
	return &Controller{cell: cell}
}

// Apply reacts to one feedback quantum's statistics, per the piecewise rule
// in spec.md section 4.8. It returns the new bitrate (also published to the
// cell) and whether it changed from the previous value.
func (c *Controller) Apply(fb FeedbackPacket) (newBitrate uint32, changed bool) {
	current, _ := c.cell.Get()

	if fb.TotalBlocks == 0 {
		return current, false
	}

	congestion := float64(fb.OutOfOrderBlocks) / float64(fb.TotalBlocks)

	var next uint32
	switch {
	case congestion > congestionFloor || fb.ECCDecoderFailures > 0:
		next = uint32(float64(current) * decreaseFactor)
	case congestion > holdRangeLow && congestion <= holdRangeHigh:
		next = current
	default:
		next = current + increaseStepBps
	}

	if next == current {
		return current, false
	}
	c.cell.Set(next)
	return next, true
}
