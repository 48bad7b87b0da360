// Package server implements the server-side half of the streaming pipeline:
// the paced capture/encode/packetize/FEC send loop (spec.md section 4.5),
// the feedback-stream reader driving the AIMD bitrate controller (section
// 4.8), and the input-event receiver feeding the windowing emulator
// (section 4.9). Grounded on server/src/server/{mod,streaming_server}.rs in
// original_source/: one goroutine per concurrent duty (capture, media
// sender, feedback reader, input receiver), communicating through the
// mutex-protected cells and channels spec.md section 5 names.
package server

import (
	"net"
	"strconv"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"

	"github.com/lightvideo/lvstream/internal/capture"
	"github.com/lightvideo/lvstream/internal/codec"
	"github.com/lightvideo/lvstream/internal/colorconv"
	"github.com/lightvideo/lvstream/internal/fec"
	"github.com/lightvideo/lvstream/internal/feedback"
	"github.com/lightvideo/lvstream/internal/input"
	"github.com/lightvideo/lvstream/internal/liberrors"
	"github.com/lightvideo/lvstream/internal/logging"
	"github.com/lightvideo/lvstream/internal/rtph264"
	"github.com/lightvideo/lvstream/internal/stats"
)

// Port offsets from spec.md section 6: feedback is media+2, input is media+3.
const (
	FeedbackPortOffset = 2
	InputPortOffset    = 3
)

// RTPPayloadType is the payload type used for every media RTP packet
// (spec.md section 3, "payload type 96").
const RTPPayloadType = 96

// Config collects the out-of-scope collaborators (spec.md section 1) and
// the scalars the server needs to wire the pipeline together.
type Config struct {
	BindAddr   string // media UDP bind address ("host:port")
	TargetAddr string // media UDP send-to address

	FPS               int
	InitialBitrateBps uint32

	Capturer      capture.Capturer
	Encoder       codec.Encoder
	Converter     colorconv.Converter
	InputEmulator input.Emulator
	Stats         *stats.Collector
}

// Server owns every piece of server-side state: the media socket, the
// per-connection FEC/RTP encoders, the shared bitrate cell, and the
// collaborators from Config.
type Server struct {
	cfg Config

	mediaConn *net.UDPConn
	rtpEnc    *rtph264.Encoder
	fecEnc    *fec.Encoder

	bitrateCell *feedback.BitrateCell
	controller  *feedback.Controller

	lastAppliedGen uint64

	log *logging.Logger
}

// New wires a Server from cfg. It dials the media UDP socket and builds the
// RTP/FEC encoders but does not start any goroutines.
func New(cfg Config) (*Server, error) {
	local, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "server.Server", Err: err}
	}
	remote, err := net.ResolveUDPAddr("udp", cfg.TargetAddr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "server.Server", Err: err}
	}
	conn, err := net.DialUDP("udp", local, remote)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "server.Server", Err: err}
	}

	rtpEnc, err := rtph264.NewEncoder(RTPPayloadType)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "server.Server", Err: err}
	}
	fecEnc, err := fec.NewEncoder()
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "server.Server", Err: err}
	}

	bitrateCell := feedback.NewBitrateCell(cfg.InitialBitrateBps)

	if cfg.Stats != nil {
		cfg.Stats.Register("server_packet_sending", stats.TimeSeries)
	}

	return &Server{
		cfg:         cfg,
		mediaConn:   conn,
		rtpEnc:      rtpEnc,
		fecEnc:      fecEnc,
		bitrateCell: bitrateCell,
		controller:  feedback.NewController(bitrateCell),
		log:         logging.New("server"),
	}, nil
}

// udpWriter adapts a connected *net.UDPConn to fec.PacketWriter.
type udpWriter struct{ conn *net.UDPConn }

func (w udpWriter) WritePacket(b []byte) error {
	_, err := w.conn.Write(b)
	return err
}

// offsetAddr derives the feedback/input bind address from the media bind
// address, per spec.md section 6's fixed port offsets.
func offsetAddr(addr string, offset int) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(port+offset)), nil
}

// Run starts every server-side goroutine (capture, media sender, feedback
// reader, input receiver) and blocks until quit is closed. It implements
// the "server server <bind_addr> <target_addr>" CLI command (spec.md
// section 6).
func (s *Server) Run(quit <-chan struct{}) error {
	feedbackAddr, err := offsetAddr(s.cfg.BindAddr, FeedbackPortOffset)
	if err != nil {
		return liberrors.ErrFatalInit{Component: "server.Run", Err: err}
	}
	inputAddr, err := offsetAddr(s.cfg.BindAddr, InputPortOffset)
	if err != nil {
		return liberrors.ErrFatalInit{Component: "server.Run", Err: err}
	}

	go s.runFeedbackReader(feedbackAddr, quit)
	go s.runInputReceiver(inputAddr, quit)

	frames := make(chan codec.Frame, 2)
	go s.runCapture(frames, quit)

	return s.runSendLoop(frames, quit)
}

func (s *Server) runCapture(frames chan<- codec.Frame, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}

		frame, err := s.cfg.Capturer.Capture()
		if err != nil {
			s.log.Errorf("capture: %v", err)
			continue
		}

		// Non-blocking push; if the channel is full, drop the oldest frame
		// to make room for the freshest one (spec.md section 4.5 item 1).
		select {
		case frames <- frame:
		default:
			select {
			case <-frames:
			default:
			}
			select {
			case frames <- frame:
			default:
			}
		}
	}
}

func (s *Server) runFeedbackReader(addr string, quit <-chan struct{}) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Errorf("feedback listen %s: %v", addr, err)
		return
	}
	defer ln.Close()

	go func() {
		<-quit
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		reader := feedback.NewReader(conn, s.controller)
		go func() {
			if err := reader.Run(); err != nil {
				s.log.Warnf("feedback reader: %v", err)
			}
		}()
	}
}

func (s *Server) runInputReceiver(addr string, quit <-chan struct{}) {
	recv, err := input.Listen(addr)
	if err != nil {
		s.log.Errorf("input listen %s: %v", addr, err)
		return
	}
	defer recv.Close()

	if err := recv.Run(s.cfg.InputEmulator, quit); err != nil {
		s.log.Warnf("input receiver: %v", err)
	}
}

func (s *Server) runSendLoop(frames <-chan codec.Frame, quit <-chan struct{}) error {
	interval := time.Second / time.Duration(s.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	tsIncrement := uint32(rtph264.ClockRate / s.cfg.FPS)
	var pts uint32

	writer := udpWriter{conn: s.mediaConn}

	for {
		select {
		case <-quit:
			return nil
		case <-ticker.C:
		}

		s.applyBitrateIfChanged()

		var frame codec.Frame
		select {
		case frame = <-frames:
		default:
			pts += tsIncrement
			continue
		}

		yuv, err := s.cfg.Converter.ToI420(frame)
		if err != nil {
			s.log.Warnf("color convert: %v", err)
			pts += tsIncrement
			continue
		}

		bitstream, err := s.cfg.Encoder.Encode(yuv, uint64(time.Since(start).Milliseconds()))
		if err != nil {
			if err == codec.ErrNeedMoreInput {
				pts += tsIncrement
				continue
			}
			s.log.Errorf("encode: %v", err)
			pts += tsIncrement
			continue
		}

		nalus, err := h264.AnnexBUnmarshal(bitstream)
		if err != nil {
			s.log.Warnf("annex-b split: %v", err)
			pts += tsIncrement
			continue
		}

		pkts, err := s.rtpEnc.EncodeAccessUnit(nalus, pts)
		if err != nil {
			s.log.Warnf("rtp packetize: %v", err)
			pts += tsIncrement
			continue
		}

		tick := time.Now()
		for _, pkt := range pkts {
			if err := s.fecEnc.Send(pkt, writer); err != nil {
				s.log.Warnf("fec send: %v", err)
			}
		}
		if s.cfg.Stats != nil {
			s.cfg.Stats.Update("server_packet_sending", stats.DurationPoint(time.Since(tick)))
		}

		pts += tsIncrement
	}
}

func (s *Server) applyBitrateIfChanged() {
	current, gen := s.bitrateCell.Get()
	if gen == s.lastAppliedGen {
		return
	}
	s.lastAppliedGen = gen
	if err := s.cfg.Encoder.SetBitrate(current); err != nil {
		s.log.Errorf("set bitrate %d: %v", current, err)
		return
	}
	s.log.Infof("bitrate applied: %d bps (forces IDR)", current)
}
