// Package liberrors contains the error kinds that cross the boundary of
// the streaming pipeline's hot paths.
package liberrors

import "fmt"

// ErrMalformed is returned when a wire datagram is too short or otherwise
// not well-formed. The caller logs and drops the datagram; it never
// propagates upward. No counter records malformed datagrams.
type ErrMalformed struct {
	Reason string
}

// Error implements the error interface.
func (e ErrMalformed) Error() string {
	return fmt.Sprintf("malformed datagram: %s", e.Reason)
}

// ErrNeedMoreInput describes a frame that did not produce output yet. The
// codec boundary signals this case with its own sentinel,
// codec.ErrNeedMoreInput; nothing in this repository returns this type.
type ErrNeedMoreInput struct{}

// Error implements the error interface.
func (e ErrNeedMoreInput) Error() string {
	return "need more input"
}

// ErrDecodeFailed describes a block that could not be reconstructed from the
// shards that were received. fec.Decoder does not return it: it counts such
// blocks in Stats.ECCDecoderFailures and drops the missing packets.
type ErrDecodeFailed struct {
	BlockID uint32
	Reason  string
}

// Error implements the error interface.
func (e ErrDecodeFailed) Error() string {
	return fmt.Sprintf("fec decode failed for block %d: %s", e.BlockID, e.Reason)
}

// ErrChannelClosed is returned when an internal channel feeding a worker
// loop has been closed. It terminates only the owning goroutine.
type ErrChannelClosed struct {
	Name string
}

// Error implements the error interface.
func (e ErrChannelClosed) Error() string {
	return fmt.Sprintf("channel closed: %s", e.Name)
}

// ErrFatalInit is returned by setup code (socket bind, codec init) that
// cannot be recovered from; the caller should terminate the process.
type ErrFatalInit struct {
	Component string
	Err       error
}

// Error implements the error interface.
func (e ErrFatalInit) Error() string {
	return fmt.Sprintf("fatal init failure in %s: %v", e.Component, e.Err)
}

// Unwrap allows errors.Is/errors.As to reach the underlying cause.
func (e ErrFatalInit) Unwrap() error {
	return e.Err
}
