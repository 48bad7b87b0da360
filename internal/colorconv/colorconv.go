// Package colorconv defines the color-space conversion boundary spec.md
// section 1 places out of scope ("color-space conversion" is listed
// alongside the capture source and codec as an external collaborator
// "specified only by the interfaces the core consumes"). Grounded on the
// dcv_color_primitives usage in client/src/decoder/mod.rs (I420 -> RGBA,
// BT.601 full range) and the mirrored RGBA -> I420 step the server side
// needs before handing a frame to the H.264 encoder.
package colorconv

import "github.com/lightvideo/lvstream/internal/codec"

// Converter turns a captured RGBA frame into the encoder's YUV input
// format, and a decoded YUV frame into the RGBA format the DoubleBuffer
// and UI expect.
type Converter interface {
	ToI420(rgba codec.Frame) (codec.Frame, error)
	ToRGBA(yuv codec.Frame) (codec.Frame, error)
}
