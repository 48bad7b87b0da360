package feedback

import (
	"net"
	"time"

	"github.com/lightvideo/lvstream/internal/logging"
)

// Quantum is Q from spec.md section 4.8: the fixed interval between
// feedback reports.
const Quantum = 1 * time.Second

// Sender is the client-side feedback timer: every Quantum it drains cell,
// serializes the Ack and FeedbackPacket with their one-byte type tags, and
// writes both onto a connected TCP stream.
type Sender struct {
	conn net.Conn
	cell *Cell
	log  *logging.Logger
}

// NewSender wraps an already-connected TCP conn to the server's feedback
// port (spec.md section 6, P_feedback = P_media + 2).
func NewSender(conn net.Conn, cell *Cell) *Sender {
	return &Sender{conn: conn, cell: cell, log: logging.New("feedback-sender")}
}

// Run blocks, firing one report every Quantum until quit is closed.
func (s *Sender) Run(quit <-chan struct{}) {
	ticker := time.NewTicker(Quantum)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sender) tick() {
	fb, seq := s.cell.Drain(uint16(Quantum.Milliseconds()))

	ack := Ack{RTPSeqno: seq, SendTSMs: uint64(time.Now().UnixMilli())}

	buf := make([]byte, 1+AckLen+1+FeedbackLen)
	buf[0] = TagAck
	ack.Marshal(buf[1 : 1+AckLen])
	buf[1+AckLen] = TagFeedback
	fb.Marshal(buf[1+AckLen+1:])

	if _, err := s.conn.Write(buf); err != nil {
		s.log.Warnf("feedback write: %v", err)
	}
}

// Reader is the server-side feedback-stream reader. It reads length-
// implicit tagged records and dispatches ACKs to RTT logging and feedback
// packets to the AIMD controller.
type Reader struct {
	conn       net.Conn
	controller *Controller
	log        *logging.Logger

	// OnAck, if set, is called with the measured RTT for each Ack record.
	OnAck func(rtt time.Duration)
}

// NewReader wraps an accepted feedback TCP connection.
func NewReader(conn net.Conn, controller *Controller) *Reader {
	return &Reader{conn: conn, controller: controller, log: logging.New("feedback-reader")}
}

// Run blocks, reading tagged records until the connection errors or closes.
// A malformed tag is a fatal stream error per spec.md section 6.
func (r *Reader) Run() error {
	tagBuf := make([]byte, 1)
	ackBuf := make([]byte, AckLen)
	fbBuf := make([]byte, FeedbackLen)

	for {
		if _, err := readFull(r.conn, tagBuf); err != nil {
			return err
		}

		switch tagBuf[0] {
		case TagAck:
			if _, err := readFull(r.conn, ackBuf); err != nil {
				return err
			}
			ack, err := ParseAck(ackBuf)
			if err != nil {
				return err
			}
			rtt := time.Duration(uint64(time.Now().UnixMilli())-ack.SendTSMs) * time.Millisecond
			r.log.Infof("rtt for seq %d: %s", ack.RTPSeqno, rtt)
			if r.OnAck != nil {
				r.OnAck(rtt)
			}

		case TagFeedback:
			if _, err := readFull(r.conn, fbBuf); err != nil {
				return err
			}
			fb, err := ParseFeedbackPacket(fbBuf)
			if err != nil {
				return err
			}
			newBitrate, changed := r.controller.Apply(fb)
			if changed {
				r.log.Infof("bitrate -> %d bps (congestion=%.4f failures=%d)",
					newBitrate, safeDiv(fb.OutOfOrderBlocks, fb.TotalBlocks), fb.ECCDecoderFailures)
			}

		default:
			return errMalformedTag(tagBuf[0])
		}
	}
}

func safeDiv(a, b uint16) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type malformedTagError struct{ tag byte }

func (e malformedTagError) Error() string {
	return "malformed feedback stream tag: " + string(rune('0'+e.tag))
}

func errMalformedTag(tag byte) error {
	return malformedTagError{tag: tag}
}
