// Package codec defines the opaque H.264 encoder/decoder boundary spec.md
// section 1 places out of scope ("the H.264 encoder/decoder (opaque codec
// that consumes YUV, produces/accepts an annex-B bitstream; configured with
// a bitrate the core can change at runtime)"). The interfaces here are the
// seam the core streaming pipeline (internal/server, internal/client) codes
// against; a concrete codec binding (cgo openh264, a hardware encoder, or a
// test double) implements them. This mirrors the teacher's own preference
// for small consumer-defined interfaces (see pkg/codecs' format/decoder
// split) over importing a single monolithic codec type.
package codec

import "errors"

// ErrNeedMoreInput is returned by Encoder.Encode when a frame did not
// produce a bitstream yet (spec.md section 7, "Encoder.NeedMoreInput").
// The sender loop treats this as benign and skips the tick.
var ErrNeedMoreInput = errors.New("codec: need more input")

// PixelFormat identifies the raw frame layout a Capturer produces and an
// Encoder consumes.
type PixelFormat int

// Supported pixel formats. RGBA is what the capture source (out of scope,
// spec.md section 1) produces; I420 is the planar YUV 4:2:0 layout the
// reference H.264 encoder consumes, per the original encoder/mod.rs's
// I420 YUVSource binding.
const (
	PixelFormatRGBA PixelFormat = iota
	PixelFormatI420
)

// Frame is one raw picture handed to an Encoder, already color-converted
// to the codec's expected PixelFormat.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Planes [][]byte
}

// Encoder turns successive Frames into an Annex-B H.264 bitstream. A change
// in bitrate (SetBitrate) forces the next frame encoded to be an IDR, per
// spec.md section 4.5 item 6 and section 4.8 ("a change forces an IDR"),
// matching streaming_server.rs's update_bitrate contract in original_source/.
type Encoder interface {
	// Encode compresses frame into an Annex-B bitstream. It returns
	// ErrNeedMoreInput if the encoder buffered the frame without producing
	// output (e.g. B-frame reordering look-ahead).
	Encode(frame Frame, ptsMs uint64) (bitstream []byte, err error)

	// SetBitrate reconfigures the target bitrate in bits/sec. Implementations
	// must force an IDR on the next Encode call after this returns.
	SetBitrate(bps uint32) error

	// Close releases any resources held by the encoder.
	Close() error
}

// Decoder turns an Annex-B H.264 bitstream (one access unit at a time) into
// a planar YUV frame.
type Decoder interface {
	// Decode consumes one Annex-B access unit and returns the decoded
	// picture, or nil if the decoder is still warming up (e.g. waiting for
	// the first IDR).
	Decode(accessUnit []byte) (*Frame, error)

	// Close releases any resources held by the decoder.
	Close() error
}
