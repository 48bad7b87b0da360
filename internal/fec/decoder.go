package fec

import (
	"github.com/klauspost/reedsolomon"
	"github.com/pion/rtp"

	"github.com/lightvideo/lvstream/internal/liberrors"
	"github.com/lightvideo/lvstream/internal/logging"
	"github.com/lightvideo/lvstream/internal/wire"
)

// block holds all per-block state the decoder needs: which shards have
// arrived, the recovery-shard-carried size table, and the reassembly queue
// for anything that didn't go out on the normal (in-order) path. Grounded on
// the client-side block bookkeeping described in spec.md section 4.3.
type block struct {
	id uint32

	shards       [][]byte // OriginalShards+RecoveryShards, nil until received
	pktSizes     [wire.OriginalShards]uint16
	havePktSizes bool

	sendq [wire.OriginalShards][]byte // reassembled raw RTP bytes, indexed by fragment_index

	originalCount int
	recoveryCount int

	haveLast bool
	lastSeen uint32 // last-seen original fragment_index, any order

	inOrder       uint32 // count of originals 0..inOrder-1 already emitted directly
	sawOutOfOrder bool
	lostCandidate uint32
}

func newBlock(id uint32) *block {
	return &block{id: id, shards: make([][]byte, wire.OriginalShards+wire.RecoveryShards)}
}

// Decoder is the client-side per-connection erasure decoder. It is not safe
// for concurrent use: it runs on the media receiver's single goroutine
// (spec.md section 4.6).
type Decoder struct {
	codec   reedsolomon.Encoder
	cur     *block
	started bool

	// Stats accumulates the counters the media receiver loop drains into
	// the shared feedback cell under a try-lock (spec.md section 4.6).
	Stats Counters

	log *logging.Logger
}

// NewDecoder builds a Decoder with no current block; the block of the first
// datagram it sees becomes the initial block.
func NewDecoder() (*Decoder, error) {
	codec, err := reedsolomon.New(wire.OriginalShards, wire.RecoveryShards)
	if err != nil {
		return nil, liberrors.ErrFatalInit{Component: "fec.Decoder", Err: err}
	}
	return &Decoder{codec: codec, log: logging.New("fec-decoder")}, nil
}

// serialDiff returns a-b as a signed distance that tolerates uint32
// wraparound, the same comparison idiom used for TCP/KCP sequence numbers.
func serialDiff(a, b uint32) int32 {
	return int32(a - b)
}

// Ingest consumes one erasure-coded datagram and returns the RTP packets it
// makes available, in emission order. Most datagrams yield zero or one
// packet; a datagram that triggers a block transition can yield several at
// once (the out-of-order tail of the closed block, in index order).
func (d *Decoder) Ingest(datagram []byte) ([]*rtp.Packet, error) {
	hdr, payload, err := wire.Parse(datagram)
	if err != nil {
		return nil, err
	}

	if !d.started {
		d.cur = newBlock(hdr.BlockID)
		d.started = true
	} else if diff := serialDiff(hdr.BlockID, d.cur.id); diff > 0 {
		out := d.closeCurrent()
		d.cur = newBlock(hdr.BlockID)
		return append(out, d.ingestInto(d.cur, hdr, payload)...), nil
	} else if diff < 0 {
		d.log.Debugf("dropping datagram from closed block %d (current %d)", hdr.BlockID, d.cur.id)
		return nil, nil
	}

	return d.ingestInto(d.cur, hdr, payload), nil
}

// ingestInto applies one datagram's header+payload to b, returning any RTP
// packets it makes available for immediate (in-order) emission.
func (d *Decoder) ingestInto(b *block, hdr wire.Header, payload []byte) []*rtp.Packet {
	if hdr.RecoveryPkt {
		return d.ingestRecovery(b, hdr, payload)
	}
	return d.ingestOriginal(b, hdr, payload)
}

func (d *Decoder) ingestOriginal(b *block, hdr wire.Header, payload []byte) []*rtp.Packet {
	idx := hdr.FragmentIndex
	if idx >= wire.OriginalShards {
		d.log.Warnf("original fragment_index %d out of range", idx)
		return nil
	}

	shard := makeShard(payload)
	alreadyHad := b.shards[idx] != nil
	b.shards[idx] = shard
	if !alreadyHad {
		b.originalCount++
	}

	expected := uint32(0)
	if b.haveLast {
		expected = (b.lastSeen + 1) % wire.OriginalShards
	}
	b.haveLast = true
	b.lastSeen = idx

	if idx == expected && idx == b.inOrder {
		b.inOrder++
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(payload); err != nil {
			d.log.Warnf("unmarshal original block=%d frag=%d: %v", b.id, idx, err)
			return nil
		}
		d.Stats.TotalPackets++
		return []*rtp.Packet{pkt}
	}

	// Out-of-order: stash for emission at block close, and record the gap
	// as candidate loss rather than counting it twice if it later recovers.
	if !alreadyHad {
		b.sendq[idx] = payload
		b.sawOutOfOrder = true
		if idx > expected {
			b.lostCandidate += idx - expected
		}
	}
	return nil
}

func (d *Decoder) ingestRecovery(b *block, hdr wire.Header, payload []byte) []*rtp.Packet {
	idx := hdr.FragmentIndex
	if idx >= wire.RecoveryShards {
		d.log.Warnf("recovery fragment_index %d out of range", idx)
		return nil
	}
	if b.originalCount == wire.OriginalShards {
		// Block already complete from originals; recovery shards are
		// absorbed harmlessly (spec.md section 4.3 edge cases).
		return nil
	}

	if b.shards[wire.OriginalShards+int(idx)] == nil {
		b.recoveryCount++
	}
	b.shards[wire.OriginalShards+int(idx)] = makeShard(payload)
	b.pktSizes = hdr.PktSizes
	b.havePktSizes = true
	return nil
}

// makeShard returns a wire.ShardSize buffer holding payload zero-padded to
// size, mirroring the padding the encoder applied before running it through
// the Reed-Solomon codec.
func makeShard(payload []byte) []byte {
	s := make([]byte, wire.ShardSize)
	copy(s, payload)
	return s
}

// closeCurrent finalizes d.cur: if it's missing originals, attempts Reed-
// Solomon reconstruction, then drains the sendq (including anything just
// reconstructed) in fragment order. Always called right before d.cur is
// replaced by a new block.
func (d *Decoder) closeCurrent() []*rtp.Packet {
	b := d.cur
	d.Stats.TotalBlocks++
	if b.sawOutOfOrder {
		d.Stats.OutOfOrderBlocks++
	}
	d.Stats.LostPackets += b.lostCandidate

	if b.originalCount < wire.OriginalShards && b.originalCount > 0 {
		if b.havePktSizes && d.codec.Reconstruct(b.shards) == nil {
			for i := 0; i < wire.OriginalShards; i++ {
				if b.sendq[i] != nil || uint32(i) < b.inOrder {
					continue
				}
				sz := b.pktSizes[i]
				b.sendq[i] = append([]byte(nil), b.shards[i][:sz]...)
			}
		} else {
			d.Stats.ECCDecoderFailures++
		}
	}

	var out []*rtp.Packet
	for i := b.inOrder; i < wire.OriginalShards; i++ {
		raw := b.sendq[i]
		if raw == nil {
			continue
		}
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(raw); err != nil {
			d.log.Warnf("unmarshal reassembled block=%d frag=%d: %v", b.id, i, err)
			continue
		}
		d.Stats.TotalPackets++
		out = append(out, pkt)
	}
	return out
}
