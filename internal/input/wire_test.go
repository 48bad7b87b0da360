package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	cases := []interface{}{
		KeyboardEvent{KeyCode: 65, State: KeyPressed},
		KeyboardEvent{KeyCode: 27, State: KeyReleased},
		MouseClickEvent{Button: MouseButtonRight, State: KeyPressed},
		MouseWheelEvent{DeltaY: -3.5},
		MouseMoveEvent{X: 123.25, Y: -9.75},
	}

	for _, ev := range cases {
		buf, err := Marshal(ev)
		require.NoError(t, err)
		require.Len(t, buf, PacketLen)

		got, err := Unmarshal(buf)
		require.NoError(t, err)
		require.Equal(t, ev, got)
	}
}

func TestMarshalUnknownType(t *testing.T) {
	_, err := Marshal(42)
	require.Error(t, err)
}

func TestUnmarshalShortBuffer(t *testing.T) {
	_, err := Unmarshal(make([]byte, PacketLen-1))
	require.Error(t, err)
}

func TestUnmarshalUnknownVariant(t *testing.T) {
	buf := make([]byte, PacketLen)
	buf[0] = 0xFF
	_, err := Unmarshal(buf)
	require.Error(t, err)
}

func TestDispatchCallsMatchingMethod(t *testing.T) {
	e := &recordingEmulator{}

	buf, err := Marshal(MouseClickEvent{Button: MouseButtonMiddle, State: KeyReleased})
	require.NoError(t, err)
	require.NoError(t, Dispatch(buf, e))

	require.Equal(t, 1, e.clicks)
	require.Equal(t, MouseButtonMiddle, e.lastButton)
	require.Equal(t, KeyReleased, e.lastState)
}

type recordingEmulator struct {
	clicks     int
	lastButton MouseButton
	lastState  KeyState
}

func (e *recordingEmulator) Key(code uint8, state KeyState) {}
func (e *recordingEmulator) MouseWheel(deltaY float64)      {}
func (e *recordingEmulator) MouseMove(x, y float64)         {}

func (e *recordingEmulator) MouseClick(button MouseButton, state KeyState) {
	e.clicks++
	e.lastButton = button
	e.lastState = state
}
