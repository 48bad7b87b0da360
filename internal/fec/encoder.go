// Package fec implements the Reed-Solomon erasure coding layer that sits
// between RTP packetization and the UDP socket (spec.md section 4.2
// "Erasure Encoder (server)" and section 4.3 "Erasure Decoder (client)").
// It is grounded on server/src/packager/packet.rs's LVErasureManager (the
// per-block state machine: originals sent immediately, recovery shards
// burst-sent after the Rth original) and uses github.com/klauspost/reedsolomon
// as the concrete codec, the same role filled by kcptun's vendored fec.go in
// the reference pack. The teacher (gortsplib) has no FEC layer of its own;
// the bookkeeping style here follows its pkg/format/rtph264 encoder, which
// also carries small per-stream counters (sequence number, timestamp) across
// calls the way Encoder carries block_id and fragment_index here.
package fec

import (
	"github.com/klauspost/reedsolomon"
	"github.com/pion/rtp"

	"github.com/lightvideo/lvstream/internal/liberrors"
	"github.com/lightvideo/lvstream/internal/logging"
	"github.com/lightvideo/lvstream/internal/wire"
)

// PacketWriter is the minimal send primitive the encoder needs. internal/server
// adapts a *net.UDPConn to this interface.
type PacketWriter interface {
	WritePacket(b []byte) error
}

// Encoder is the server-side per-connection erasure encoder. It is not safe
// for concurrent use: one Encoder serves one client media stream.
type Encoder struct {
	codec reedsolomon.Encoder

	blockID       uint32
	fragmentIndex uint32

	// shards holds OriginalShards+RecoveryShards buffers of wire.ShardSize
	// bytes each. Indices [0,OriginalShards) are the current block's
	// originals (zero-padded); [OriginalShards,OriginalShards+RecoveryShards)
	// are filled by Encode once the block closes.
	shards   [][]byte
	pktSizes [wire.OriginalShards]uint16

	largestPayloadSeen int

	wireBuf []byte // scratch: HeaderLen + ShardSize

	log *logging.Logger
}

// NewEncoder builds an Encoder ready to send the first block (block_id 0).
func NewEncoder() (*Encoder, error) {
	codec, err := reedsolomon.New(wire.OriginalShards, wire.RecoveryShards)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "fec.Encoder", Err: err}
	}

	shards := make([][]byte, wire.OriginalShards+wire.RecoveryShards)
	for i := range shards {
		shards[i] = make([]byte, wire.ShardSize)
	}

	return &Encoder{
		codec:   codec,
		shards:  shards,
		wireBuf: make([]byte, wire.HeaderLen+wire.ShardSize),
		log:     logging.New("fec-encoder"),
	}, nil
}

// Send packetizes one RTP packet into the current FEC block and writes it to
// w, closing the block (and bursting its recovery shards) once the Rth
// original has been sent. This is the seven-step send() operation from
// spec.md section 4.2.
func (e *Encoder) Send(pkt *rtp.Packet, w PacketWriter) error {
	shard := e.shards[e.fragmentIndex]

	m := pkt.MarshalSize()
	if m > len(shard) {
		return liberrors.ErrMalformed{Reason: "rtp packet exceeds shard size"}
	}
	if _, err := pkt.MarshalTo(shard); err != nil {
		return err
	}
	for i := m; i < len(shard); i++ {
		shard[i] = 0
	}

	e.pktSizes[e.fragmentIndex] = uint16(m)
	if m > e.largestPayloadSeen {
		e.largestPayloadSeen = m
	}

	hdr := wire.Header{
		BlockID:         e.blockID,
		MinFragmentSize: wire.OriginalShards,
		RecoveryPkt:     false,
		FragmentIndex:   e.fragmentIndex,
	}
	n := wire.Build(e.wireBuf, hdr, shard[:m])
	if err := w.WritePacket(e.wireBuf[:n]); err != nil {
		e.log.Warnf("send original block=%d frag=%d: %v", e.blockID, e.fragmentIndex, err)
	}

	e.fragmentIndex++
	if e.fragmentIndex == wire.OriginalShards {
		e.closeBlock(w)
	}
	return nil
}

// closeBlock computes the recovery shards for the just-completed block,
// bursts them out, and resets state for the next block.
func (e *Encoder) closeBlock(w PacketWriter) {
	if err := e.codec.Encode(e.shards); err != nil {
		e.log.Errorf("rs encode block=%d: %v", e.blockID, err)
	} else {
		for k := 0; k < wire.RecoveryShards; k++ {
			hdr := wire.Header{
				BlockID:         e.blockID,
				MinFragmentSize: wire.OriginalShards,
				RecoveryPkt:     true,
				FragmentIndex:   uint32(k),
				PktSizes:        e.pktSizes,
			}
			recShard := e.shards[wire.OriginalShards+k]
			n := wire.Build(e.wireBuf, hdr, recShard[:e.largestPayloadSeen])
			if err := w.WritePacket(e.wireBuf[:n]); err != nil {
				e.log.Warnf("send recovery block=%d frag=%d: %v", e.blockID, k, err)
			}
		}
	}

	for _, s := range e.shards {
		for i := range s {
			s[i] = 0
		}
	}
	e.pktSizes = [wire.OriginalShards]uint16{}
	e.largestPayloadSeen = 0
	e.fragmentIndex = 0
	e.blockID++
}
