// Package client implements the client-side half of the streaming pipeline:
// the UDP media receiver (spec.md section 4.6) feeding the FEC decoder, the
// RTP depacketizer, and the codec decoder into the DoubleBuffer, plus the
// feedback-stream sender (section 4.8) and the input-event bootstrap
// (section 4.9). Grounded on client/src/decoder/{mod,network}.rs and
// client/src/main.rs in original_source/: a socket-reading goroutine
// separate from the processing goroutine, connected by a bounded channel of
// pooled buffers, matching network.rs's socket_loop / packet_push split.
package client

import (
	"net"
	"strconv"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"

	"github.com/lightvideo/lvstream/internal/codec"
	"github.com/lightvideo/lvstream/internal/colorconv"
	"github.com/lightvideo/lvstream/internal/doublebuffer"
	"github.com/lightvideo/lvstream/internal/fec"
	"github.com/lightvideo/lvstream/internal/feedback"
	"github.com/lightvideo/lvstream/internal/input"
	"github.com/lightvideo/lvstream/internal/liberrors"
	"github.com/lightvideo/lvstream/internal/logging"
	"github.com/lightvideo/lvstream/internal/packetpool"
	"github.com/lightvideo/lvstream/internal/rtph264"
	"github.com/lightvideo/lvstream/internal/stats"
	"github.com/lightvideo/lvstream/internal/wire"
)

// PoolDepth is the minimum packet-pool depth from spec.md section 4.6
// ("pool depth >= 1000").
const PoolDepth = 1000

// Config collects the out-of-scope collaborators and scalars the client
// needs.
type Config struct {
	BindAddr   string // media UDP bind address
	ServerAddr string // media server address (used to derive feedback/input addrs)
	InputLocal string // local UDP bind address for the input sender

	Decoder     codec.Decoder
	Converter   colorconv.Converter
	InputEvents <-chan interface{} // produced by the out-of-scope input capture source
	Stats       *stats.Collector
}

// Client owns every piece of client-side state.
type Client struct {
	cfg Config

	mediaConn *net.UDPConn
	pool      *packetpool.Pool
	fecDec    *fec.Decoder
	rtpDec    *rtph264.Decoder
	dbuf      *doublebuffer.DoubleBuffer
	fbCell    *feedback.Cell

	lastStats fec.Counters

	log *logging.Logger
}

// New wires a Client from cfg, binding the media UDP socket.
func New(cfg Config) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "client.Client", Err: err}
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "client.Client", Err: err}
	}

	fecDec, err := fec.NewDecoder()
	if err != nil {
		return nil, err
	}

	if cfg.Stats != nil {
		cfg.Stats.Register("client_decode_latency", stats.TimeSeries)
	}

	return &Client{
		cfg:       cfg,
		mediaConn: conn,
		pool:      packetpool.New(PoolDepth, wire.MTU),
		fecDec:    fecDec,
		rtpDec:    &rtph264.Decoder{},
		dbuf:      doublebuffer.New(),
		fbCell:    feedback.NewCell(uint16(feedback.Quantum.Milliseconds())),
		log:       logging.New("client"),
	}, nil
}

// DoubleBuffer exposes the frame hand-off for the UI loop (out of scope,
// spec.md section 1).
func (c *Client) DoubleBuffer() *doublebuffer.DoubleBuffer {
	return c.dbuf
}

// offsetAddr derives the feedback/input connect address from the media
// server address, per spec.md section 6's fixed port offsets.
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

// Run starts every client-side goroutine (media receiver, feedback sender,
// input bootstrap) and blocks on the media receive loop until quit is
// closed. It implements the "lvclient <bind_addr> <server_addr>" CLI
// command.
func (c *Client) Run(quit <-chan struct{}) error {
	feedbackAddr, err := offsetAddr(c.cfg.ServerAddr, feedbackPortOffset)
	if err != nil {
		return liberrors.ErrFatalInit{Component: "client.Run", Err: err}
	}
	inputAddr, err := offsetAddr(c.cfg.ServerAddr, inputPortOffset)
	if err != nil {
		return liberrors.ErrFatalInit{Component: "client.Run", Err: err}
	}

	go c.runFeedbackSender(feedbackAddr, quit)
	go c.runInputSender(inputAddr, quit)

	return c.runReceiveLoop(quit)
}

const (
	feedbackPortOffset = 2
	inputPortOffset    = 3
)

func (c *Client) runFeedbackSender(addr string, quit <-chan struct{}) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		c.log.Errorf("feedback dial %s: %v", addr, err)
		return
	}
	defer conn.Close()

	sender := feedback.NewSender(conn, c.fbCell)
	sender.Run(quit)
}

func (c *Client) runInputSender(addr string, quit <-chan struct{}) {
	sender, err := input.Dial(c.cfg.InputLocal, addr)
	if err != nil {
		c.log.Errorf("input dial %s: %v", addr, err)
		return
	}
	defer sender.Close()

	if err := sender.Bootstrap(); err != nil {
		c.log.Warnf("input bootstrap: %v", err)
	}

	for {
		select {
		case <-quit:
			return
		case ev, ok := <-c.cfg.InputEvents:
			if !ok {
				return
			}
			if err := sender.Send(ev); err != nil {
				c.log.Warnf("input send: %v", err)
			}
		}
	}
}

type datagram struct {
	buf []byte
	n   int
}

func (c *Client) runReceiveLoop(quit <-chan struct{}) error {
	raw := make(chan datagram, PoolDepth)

	go c.runSocketReader(raw, quit)

	for {
		select {
		case <-quit:
			return nil
		case dg := <-raw:
			c.processDatagram(dg.buf[:dg.n])
		}
	}
}

func (c *Client) runSocketReader(raw chan<- datagram, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}

		buf := c.pool.Next()
		n, _, err := c.mediaConn.ReadFromUDP(buf)
		if err != nil {
			c.log.Errorf("media recv: %v", err)
			return
		}

		select {
		case raw <- datagram{buf: buf, n: n}:
		default:
			// Pool/channel exhausted: drop the newest packet rather than
			// queue unboundedly (spec.md section 4.6, section 9 "Zero-copy
			// UDP").
			c.log.Debugf("receive channel full, dropping datagram")
		}
	}
}

func (c *Client) processDatagram(dg []byte) {
	pkts, err := c.fecDec.Ingest(dg)
	if err != nil {
		c.log.Warnf("fec ingest: %v", err)
		return
	}

	for _, pkt := range pkts {
		nalus, err := c.rtpDec.Decode(pkt)
		if err != nil {
			if err != rtph264.ErrMorePacketsNeeded {
				c.log.Warnf("rtp depacketize: %v", err)
			}
			continue
		}

		bitstream, err := h264.AnnexBMarshal(nalus)
		if err != nil {
			c.log.Warnf("annex-b marshal: %v", err)
			continue
		}

		before := time.Now()
		yuv, err := c.cfg.Decoder.Decode(bitstream)
		if err != nil {
			c.log.Warnf("codec decode: %v", err)
			continue
		}
		if c.cfg.Stats != nil {
			c.cfg.Stats.Update("client_decode_latency", stats.DurationPoint(time.Since(before)))
		}
		if yuv == nil {
			continue // decoder still warming up
		}

		rgba, err := c.cfg.Converter.ToRGBA(*yuv)
		if err != nil {
			c.log.Warnf("color convert: %v", err)
			continue
		}

		back, ok := c.dbuf.Back(rgba.Width, rgba.Height)
		if !ok {
			continue
		}
		copy(back.RGBA, rgba.Planes[0])
		c.dbuf.ReleaseBack()
		c.dbuf.Swap()
	}

	if len(pkts) > 0 {
		c.publishStats(pkts[len(pkts)-1].SequenceNumber)
	}
}

// publishStats drains the FEC decoder's cumulative counters into the shared
// feedback cell via try-lock, never blocking the hot receive path (spec.md
// section 4.6, section 5). It is called once per processed datagram (which
// may have emitted several packets in a block-transition batch), so the
// published last-seen sequence number always reflects the most recent
// packet in the batch rather than whichever happened to land first.
func (c *Client) publishStats(lastSeq uint16) {
	cur := c.fecDec.Stats
	delta := fec.Counters{
		TotalBlocks:        cur.TotalBlocks - c.lastStats.TotalBlocks,
		OutOfOrderBlocks:   cur.OutOfOrderBlocks - c.lastStats.OutOfOrderBlocks,
		TotalPackets:       cur.TotalPackets - c.lastStats.TotalPackets,
		LostPackets:        cur.LostPackets - c.lastStats.LostPackets,
		ECCDecoderFailures: cur.ECCDecoderFailures - c.lastStats.ECCDecoderFailures,
	}
	if delta == (fec.Counters{}) {
		return
	}

	fb := feedback.FeedbackPacket{
		TotalBlocks:            uint16(delta.TotalBlocks),
		OutOfOrderBlocks:       uint16(delta.OutOfOrderBlocks),
		TotalPackets:           uint16(delta.TotalPackets),
		LostPackets:            uint16(delta.LostPackets),
		ECCDecoderFailures:     uint16(delta.ECCDecoderFailures),
		AverageBufferOccupancy: 0,
	}
	if c.fbCell.TryAdd(fb, lastSeq) {
		c.lastStats = cur
	}
}
