package main

// The display capture source, the H.264 encoder, and color-space
// conversion are out-of-scope collaborators (spec.md section 1): this repo
// defines the interfaces the core consumes and never implements the
// platform-specific backend itself. These no-op stand-ins let the binary
// link and run: the capturer yields a black frame, but the encoder stand-in
// never produces a bitstream (every Encode returns codec.ErrNeedMoreInput),
// so no media datagrams are sent until a real backend (X11/DRM capture,
// libx264 or a hardware encoder, libyuv or similar) is plugged in behind
// capture.Capturer, codec.Encoder, and colorconv.Converter.

import (
	"github.com/lightvideo/lvstream/internal/codec"
	"github.com/lightvideo/lvstream/internal/input"
	"github.com/lightvideo/lvstream/internal/logging"
)

type blackCapturer struct {
	width, height int
}

func (c blackCapturer) Capture() (codec.Frame, error) {
	return codec.Frame{
		Width:  c.width,
		Height: c.height,
		Format: codec.PixelFormatRGBA,
		Planes: [][]byte{make([]byte, c.width*c.height*4)},
	}, nil
}

func (c blackCapturer) Close() error { return nil }

type passthroughEncoder struct {
	bitrate uint32
}

func (e *passthroughEncoder) Encode(frame codec.Frame, ptsMs uint64) ([]byte, error) {
	return nil, codec.ErrNeedMoreInput
}

func (e *passthroughEncoder) SetBitrate(bps uint32) error {
	e.bitrate = bps
	return nil
}

func (e *passthroughEncoder) Close() error { return nil }

type identityConverter struct{}

func (identityConverter) ToI420(rgba codec.Frame) (codec.Frame, error) {
	return codec.Frame{Width: rgba.Width, Height: rgba.Height, Format: codec.PixelFormatI420, Planes: rgba.Planes}, nil
}

func (identityConverter) ToRGBA(yuv codec.Frame) (codec.Frame, error) {
	return codec.Frame{Width: yuv.Width, Height: yuv.Height, Format: codec.PixelFormatRGBA, Planes: yuv.Planes}, nil
}

// logEmulator stands in for the windowing-system injection backend
// (X11/XTest, uinput, or similar): it logs every event instead of
// synthesizing it, until a real backend is wired behind input.Emulator.
type logEmulator struct {
	log *logging.Logger
}

func newLogEmulator() logEmulator {
	return logEmulator{log: logging.New("input-emulator")}
}

func (e logEmulator) Key(code uint8, state input.KeyState) {
	e.log.Debugf("key code=%d state=%d", code, state)
}

func (e logEmulator) MouseClick(button input.MouseButton, state input.KeyState) {
	e.log.Debugf("mouse click button=%d state=%d", button, state)
}

func (e logEmulator) MouseWheel(deltaY float64) {
	e.log.Debugf("mouse wheel deltaY=%.2f", deltaY)
}

func (e logEmulator) MouseMove(x, y float64) {
	e.log.Debugf("mouse move x=%.2f y=%.2f", x, y)
}
