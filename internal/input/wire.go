// Package input implements the bi-directional input-event transport from
// spec.md section 4.9: a client-bound UDP hole-punch bootstrap followed by
// a stream of typed input-event datagrams carrying user input from the
// client to the server for injection into the server's windowing system
// (spec.md section 1, "PURPOSE & SCOPE" and section 2's dataflow table).
//
// Open Question resolution: spec.md section 4.9's last sentence ("The
// client decodes and dispatches to an emulator trait") contradicts section 1
// and section 2, which both place the input emulator at the server
// (injection into "the server's windowing system"). original_source/ settles
// this unambiguously: server/src/server/input_server.rs binds and receives,
// client/src/decoder/input.rs binds and sends. This package follows that
// direction: the Sender runs on the client, the Receiver (with its Emulator)
// runs on the server. See DESIGN.md.
package input

import (
	"encoding/binary"
	"math"

	"github.com/lightvideo/lvstream/internal/liberrors"
)

// Variant tags for the leading byte of every input datagram (spec.md
// section 3, "Input packet").
const (
	VariantKeyboard   byte = 0
	VariantMouseClick byte = 1
	VariantMouseWheel byte = 2
	VariantMouseMove  byte = 3
)

const (
	// maxPayloadSize is the widest variant payload (MouseMoveEvent's two
	// float64 fields), grounded on net/src/input.rs's input_packet_size(),
	// which sizes the packet from the largest variant plus alignment
	// padding.
	maxPayloadSize = 16
	// payloadOffset is the max alignment across variants (MouseMoveEvent's
	// f64 fields align to 8), so the 1-byte variant tag is padded out to an
	// 8-byte boundary before the payload starts, per spec.md section 3
	// ("aligned to the maximum alignment of all variant payloads").
	payloadOffset = 8
)

// PacketLen is the fixed size of every input datagram.
const PacketLen = payloadOffset + maxPayloadSize

// KeyState is the press/release state of a key or mouse button.
type KeyState uint8

// KeyState values.
const (
	KeyPressed KeyState = iota
	KeyReleased
)

// MouseButton identifies which mouse button a MouseClickEvent reports.
type MouseButton uint8

// MouseButton values, matching winit's MouseButton enumeration in
// net/src/input.rs.
const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
	MouseButtonBack
	MouseButtonForward
	MouseButtonOther
)

// KeyboardEvent reports a key press or release.
type KeyboardEvent struct {
	KeyCode uint8
	State   KeyState
}

// MouseClickEvent reports a mouse button press or release. The State field
// supplements the original's button-only record (net/src/input.rs's
// LVMouseClickEvent carries no state), since injecting a click requires
// knowing whether it's a press or a release.
type MouseClickEvent struct {
	Button MouseButton
	State  KeyState
}

// MouseWheelEvent reports a scroll amount. DeltaY supplements the original
// placeholder (net/src/input.rs's LVMouseWheelEvent has no fields: "We're
// not going to bother with this right now"), since a wheel event with no
// payload cannot drive a real emulator.
type MouseWheelEvent struct {
	DeltaY float64
}

// MouseMoveEvent reports an absolute cursor position.
type MouseMoveEvent struct {
	X, Y float64
}

// Marshal encodes ev into a PacketLen-byte datagram.
func Marshal(ev interface{}) ([]byte, error) {
	buf := make([]byte, PacketLen)
	payload := buf[payloadOffset:]

	switch e := ev.(type) {
	case KeyboardEvent:
		buf[0] = VariantKeyboard
		payload[0] = e.KeyCode
		payload[1] = uint8(e.State)
	case MouseClickEvent:
		buf[0] = VariantMouseClick
		payload[0] = uint8(e.Button)
		payload[1] = uint8(e.State)
	case MouseWheelEvent:
		buf[0] = VariantMouseWheel
		binary.BigEndian.PutUint64(payload[0:8], math.Float64bits(e.DeltaY))
	case MouseMoveEvent:
		buf[0] = VariantMouseMove
		binary.BigEndian.PutUint64(payload[0:8], math.Float64bits(e.X))
		binary.BigEndian.PutUint64(payload[8:16], math.Float64bits(e.Y))
	default:
		return nil, liberrors.ErrMalformed{Reason: "unknown input event type"}
	}
	return buf, nil
}

// Unmarshal decodes a PacketLen-byte datagram into one of KeyboardEvent,
// MouseClickEvent, MouseWheelEvent, or MouseMoveEvent.
func Unmarshal(buf []byte) (interface{}, error) {
	if len(buf) < PacketLen {
		return nil, liberrors.ErrMalformed{Reason: "input datagram shorter than PacketLen"}
	}
	payload := buf[payloadOffset:]

	switch buf[0] {
	case VariantKeyboard:
		return KeyboardEvent{KeyCode: payload[0], State: KeyState(payload[1])}, nil
	case VariantMouseClick:
		return MouseClickEvent{Button: MouseButton(payload[0]), State: KeyState(payload[1])}, nil
	case VariantMouseWheel:
		return MouseWheelEvent{DeltaY: math.Float64frombits(binary.BigEndian.Uint64(payload[0:8]))}, nil
	case VariantMouseMove:
		return MouseMoveEvent{
			X: math.Float64frombits(binary.BigEndian.Uint64(payload[0:8])),
			Y: math.Float64frombits(binary.BigEndian.Uint64(payload[8:16])),
		}, nil
	default:
		return nil, liberrors.ErrMalformed{Reason: "unknown input variant tag"}
	}
}
