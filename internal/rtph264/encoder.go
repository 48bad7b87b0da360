// Package rtph264 packetizes and depacketizes H.264 access units into RTP
// packets per RFC 6184 (single-NAL, STAP-A aggregation, FU-A fragmentation).
// It is adapted from the teacher's pkg/format/rtph264 encoder/decoder pair,
// narrowed to the single packetization mode and payload budget this pipeline
// needs: every RTP packet produced must fit inside one FEC shard
// (spec.md section 4.1/4.4), since the erasure encoder treats one RTP packet
// as one original shard.
package rtph264

import (
	"crypto/rand"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/rtp"

	"github.com/lightvideo/lvstream/internal/wire"
)

const (
	rtpVersion = 2

	// ClockRate is the RTP timestamp clock rate used for H.264 video,
	// per RFC 6184.
	ClockRate = 90000

	// rtpHeaderOverhead is a conservative estimate of the fixed RTP header
	// size (12 bytes, no extensions/CSRCs), subtracted from the shard size
	// to get the encoder's default payload budget.
	rtpHeaderOverhead = 12

	// stapAHeaderLen and stapANALUPrefixLen are the per-unit STAP-A
	// framing costs (RFC 6184 section 5.7.1): one byte identifying the
	// aggregation packet itself, plus a 2-byte size prefix ahead of every
	// aggregated NALU.
	stapAHeaderLen     = 1
	stapANALUPrefixLen = 2
)

// DefaultPayloadMaxSize is the largest RTP payload this pipeline will ever
// produce: one FEC shard minus room for the RTP header.
const DefaultPayloadMaxSize = wire.ShardSize - rtpHeaderOverhead

func randUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Encoder is an RTP/H.264 encoder. One Encoder serves one media stream; it
// is not safe for concurrent use.
type Encoder struct {
	PayloadType    uint8
	SSRC           uint32
	PayloadMaxSize int

	sequenceNumber uint16
}

// NewEncoder builds an Encoder with a fresh random SSRC and initial sequence
// number, per spec.md section 4.1 ("fresh per session").
func NewEncoder(payloadType uint8) (*Encoder, error) {
	ssrc, err := randUint32()
	if err != nil {
		return nil, err
	}
	seq, err := randUint32()
	if err != nil {
		return nil, err
	}
	return &Encoder{
		PayloadType:    payloadType,
		SSRC:           ssrc,
		PayloadMaxSize: DefaultPayloadMaxSize,
		sequenceNumber: uint16(seq),
	}, nil
}

// EncodeAccessUnit packetizes the NALUs of one access unit, captured at RTP
// timestamp pts (already in ClockRate ticks), into one or more RTP packets.
// The marker bit is set on the last packet of the access unit.
//
// NALUs that fit together under PayloadMaxSize are coalesced into a single
// STAP-A packet; a NALU that doesn't fit on its own is split across several
// FU-A packets. The running aggregate size is tracked incrementally as NALUs
// are considered, rather than resummed on every candidate.
func (e *Encoder) EncodeAccessUnit(nalus [][]byte, pts uint32) ([]*rtp.Packet, error) {
	var rets []*rtp.Packet
	var batch [][]byte
	batchSize := 0 // valid once len(batch) > 0: stapAHeaderLen + sum(stapANALUPrefixLen+len(n))

	for _, nalu := range nalus {
		candidateSize := stapAHeaderLen + stapANALUPrefixLen + len(nalu)
		if len(batch) > 0 {
			candidateSize = batchSize + stapANALUPrefixLen + len(nalu)
		}

		if candidateSize <= e.PayloadMaxSize {
			batch = append(batch, nalu)
			batchSize = candidateSize
			continue
		}

		if len(batch) > 0 {
			pkts, err := e.writeBatch(batch, false)
			if err != nil {
				return nil, err
			}
			rets = append(rets, pkts...)
		}
		batch = [][]byte{nalu}
		batchSize = stapAHeaderLen + stapANALUPrefixLen + len(nalu)
	}

	pkts, err := e.writeBatch(batch, true)
	if err != nil {
		return nil, err
	}
	rets = append(rets, pkts...)

	for _, pkt := range rets {
		pkt.Timestamp = pts
	}

	return rets, nil
}

// writeBatch emits one or more RTP packets carrying the NALUs in batch: a
// lone small NALU goes out as a single packet, a lone oversized one is
// fragmented, and anything with more than one NALU is aggregated.
func (e *Encoder) writeBatch(batch [][]byte, marker bool) ([]*rtp.Packet, error) {
	switch {
	case len(batch) == 0:
		return nil, nil
	case len(batch) == 1 && len(batch[0]) < e.PayloadMaxSize:
		return e.writeSingle(batch[0], marker)
	case len(batch) == 1:
		return e.writeFragmented(batch[0], marker)
	default:
		return e.writeAggregated(batch, marker)
	}
}

func (e *Encoder) newHeader(marker bool) rtp.Header {
	h := rtp.Header{
		Version:        rtpVersion,
		PayloadType:    e.PayloadType,
		SequenceNumber: e.sequenceNumber,
		SSRC:           e.SSRC,
		Marker:         marker,
	}
	e.sequenceNumber++
	return h
}

func (e *Encoder) writeSingle(nalu []byte, marker bool) ([]*rtp.Packet, error) {
	return []*rtp.Packet{{Header: e.newHeader(marker), Payload: nalu}}, nil
}

// writeFragmented splits nalu into FU-A fragments (RFC 6184 section 5.8),
// consuming it front-to-back until nothing remains rather than precomputing
// a packet count and indexing into it.
func (e *Encoder) writeFragmented(nalu []byte, marker bool) ([]*rtp.Packet, error) {
	avail := e.PayloadMaxSize - 2
	nri := (nalu[0] >> 5) & 0x03
	typ := nalu[0] & 0x1F
	remaining := nalu[1:]

	var ret []*rtp.Packet
	for len(remaining) > 0 {
		chunk := avail
		if chunk > len(remaining) {
			chunk = len(remaining)
		}
		first := len(ret) == 0
		last := chunk == len(remaining)

		var fuHeader uint8
		if first {
			fuHeader |= 1 << 7
		}
		if last {
			fuHeader |= 1 << 6
		}
		fuHeader |= typ

		data := make([]byte, 2+chunk)
		data[0] = (nri << 5) | uint8(h264.NALUTypeFUA)
		data[1] = fuHeader
		copy(data[2:], remaining[:chunk])
		remaining = remaining[chunk:]

		ret = append(ret, &rtp.Packet{
			Header:  e.newHeader(last && marker),
			Payload: data,
		})
	}

	return ret, nil
}

// writeAggregated packs batch into one STAP-A packet (RFC 6184 section
// 5.7.1), growing the payload one NALU at a time instead of precomputing
// its total length.
func (e *Encoder) writeAggregated(batch [][]byte, marker bool) ([]*rtp.Packet, error) {
	payload := []byte{uint8(h264.NALUTypeSTAPA)}
	for _, nalu := range batch {
		payload = append(payload, uint8(len(nalu)>>8), uint8(len(nalu)))
		payload = append(payload, nalu...)
	}

	return []*rtp.Packet{{Header: e.newHeader(marker), Payload: payload}}, nil
}
