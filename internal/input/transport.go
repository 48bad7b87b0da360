package input

import (
	"net"

	"github.com/lightvideo/lvstream/internal/liberrors"
	"github.com/lightvideo/lvstream/internal/logging"
)

// Emulator receives decoded input events for injection into the host
// windowing system. The server binds one Emulator implementation at
// startup; net/src/input/{x11,mod}.rs in original_source/ is the reference
// shape (one method per event kind rather than a single dispatch-on-type
// call, so a backend can't silently ignore a new event kind).
type Emulator interface {
	Key(code uint8, state KeyState)
	MouseClick(button MouseButton, state KeyState)
	MouseWheel(deltaY float64)
	MouseMove(x, y float64)
}

// Dispatch decodes one datagram and calls the matching Emulator method.
func Dispatch(datagram []byte, e Emulator) error {
	ev, err := Unmarshal(datagram)
	if err != nil {
		return err
	}
	switch v := ev.(type) {
	case KeyboardEvent:
		e.Key(v.KeyCode, v.State)
	case MouseClickEvent:
		e.MouseClick(v.Button, v.State)
	case MouseWheelEvent:
		e.MouseWheel(v.DeltaY)
	case MouseMoveEvent:
		e.MouseMove(v.X, v.Y)
	}
	return nil
}

// Sender is the client-side half of the input transport: it bootstraps the
// server's address-learning hole-punch, then streams input events to it.
type Sender struct {
	conn *net.UDPConn
	log  *logging.Logger
}

// Dial binds a local UDP socket and returns a Sender ready to bootstrap
// against serverAddr (spec.md section 6, P_input = P_media + 3).
func Dial(localAddr, serverAddr string) (*Sender, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "input.Sender", Err: err}
	}
	remote, err := net.ResolveUDPAddr("udp", serverAddr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "input.Sender", Err: err}
	}
	conn, err := net.DialUDP("udp", local, remote)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "input.Sender", Err: err}
	}
	return &Sender{conn: conn, log: logging.New("input-sender")}, nil
}

// Bootstrap sends the one-shot zeroed hello datagram the server uses to
// learn the client's address (spec.md section 4.9). It is not retried; see
// spec.md section 9 Open Question (c).
func (s *Sender) Bootstrap() error {
	hello := make([]byte, 4)
	_, err := s.conn.Write(hello)
	return err
}

// Send marshals ev and writes it to the server.
func (s *Sender) Send(ev interface{}) error {
	buf, err := Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(buf); err != nil {
		s.log.Warnf("input send: %v", err)
		return err
	}
	return nil
}

// Close releases the underlying socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// Receiver is the server-side half of the input transport: it binds
// P_input and dispatches every full-size datagram it receives to an
// Emulator. It does not record the sender's address.
type Receiver struct {
	conn *net.UDPConn
	log  *logging.Logger
}

// Listen binds bindAddr and returns a Receiver ready to wait for the
// client's hello.
func Listen(bindAddr string) (*Receiver, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "input.Receiver", Err: err}
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "input.Receiver", Err: err}
	}
	return &Receiver{conn: conn, log: logging.New("input-receiver")}, nil
}

// Run blocks, dispatching every datagram received to e, until quit is
// closed or the socket errors. Datagrams shorter than PacketLen, such as the
// 4-byte hello, are logged at debug and skipped without being dispatched.
func (r *Receiver) Run(e Emulator, quit <-chan struct{}) error {
	buf := make([]byte, PacketLen)
	for {
		select {
		case <-quit:
			return nil
		default:
		}

		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			return liberrors.ErrChannelClosed{Name: "input.Receiver"}
		}
		if n < PacketLen {
			r.log.Debugf("input hello or short datagram (%d bytes)", n)
			continue
		}
		if err := Dispatch(buf[:n], e); err != nil {
			r.log.Warnf("input dispatch: %v", err)
		}
	}
}

// Close releases the underlying socket.
func (r *Receiver) Close() error {
	return r.conn.Close()
}
