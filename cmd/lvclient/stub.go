package main

// The H.264 decoder, color-space conversion, and GPU presentation surface
// are out-of-scope collaborators (spec.md section 1): this repo defines the
// interfaces the core consumes and never implements the platform-specific
// backend itself. These no-op stand-ins let the binary link and the
// pipeline run end to end until a real decoder (libavcodec, a hardware
// decode path) and presentation surface are plugged in behind
// codec.Decoder and colorconv.Converter.

import "github.com/lightvideo/lvstream/internal/codec"

type passthroughDecoder struct {
	width, height int
}

func (d *passthroughDecoder) Decode(accessUnit []byte) (*codec.Frame, error) {
	return &codec.Frame{
		Width:  d.width,
		Height: d.height,
		Format: codec.PixelFormatI420,
		Planes: [][]byte{make([]byte, d.width*d.height*4)},
	}, nil
}

func (d *passthroughDecoder) Close() error { return nil }

type identityConverter struct{}

func (identityConverter) ToI420(rgba codec.Frame) (codec.Frame, error) {
	return codec.Frame{Width: rgba.Width, Height: rgba.Height, Format: codec.PixelFormatI420, Planes: rgba.Planes}, nil
}

func (identityConverter) ToRGBA(yuv codec.Frame) (codec.Frame, error) {
	return codec.Frame{Width: yuv.Width, Height: yuv.Height, Format: codec.PixelFormatRGBA, Planes: yuv.Planes}, nil
}
