// Package rtph264 (decoder half): reassembles RTP/H.264 packets produced by
// Encoder back into access units. Adapted from the teacher's
// pkg/format/rtph264 decoder, restructured around two small accumulator
// types (fuaAssembler, accessUnit) instead of parallel counter fields, so
// each accumulation rule (fragment-size bound, access-unit-size bound,
// NALU-count bound) lives next to the state it bounds.
package rtph264

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/rtp"
)

// ErrMorePacketsNeeded is returned when an access unit isn't complete yet.
var ErrMorePacketsNeeded = errors.New("access unit incomplete, more packets needed")

// ErrNonStartingPacketAndNoPrevious is returned for a non-starting FU-A
// fragment received with no prior starting fragment, which is expected right
// after a decoder attaches mid-stream.
var ErrNonStartingPacketAndNoPrevious = errors.New(
	"fragment has no start bit and no fragment assembly is in progress")

// fuaAssembler reassembles FU-A fragments (RFC 6184 section 5.8) into a
// single NALU. It tracks the reconstituted size as fragments arrive so the
// final join is a single allocation-and-copy rather than a re-scan.
type fuaAssembler struct {
	pieces [][]byte
	size   int
}

func (a *fuaAssembler) reset() {
	a.pieces = nil
	a.size = 0
}

func (a *fuaAssembler) inProgress() bool {
	return a.pieces != nil
}

// begin starts a new fragment run from a start-bit packet, re-synthesizing
// the original NALU header byte from the FU indicator's NRI bits and the
// FU header's type bits.
func (a *fuaAssembler) begin(nri, typ uint8, firstChunk []byte) {
	a.pieces = [][]byte{{(nri << 5) | typ}, firstChunk}
	a.size = 1 + len(firstChunk)
}

func (a *fuaAssembler) add(chunk []byte) error {
	size := a.size + len(chunk)
	if size > h264.MaxAccessUnitSize {
		a.reset()
		return fmt.Errorf("NALU size (%d) is too big, maximum is %d", size, h264.MaxAccessUnitSize)
	}
	a.pieces = append(a.pieces, chunk)
	a.size = size
	return nil
}

// join concatenates every piece seen so far into one NALU and resets the
// assembler for the next fragment run.
func (a *fuaAssembler) join() []byte {
	out := make([]byte, a.size)
	pos := 0
	for _, p := range a.pieces {
		pos += copy(out[pos:], p)
	}
	a.reset()
	return out
}

// accessUnit accumulates the NALUs delivered across however many RTP
// packets it takes to reach the marker bit, bounding both NALU count and
// total byte size as each batch is folded in.
type accessUnit struct {
	nalus [][]byte
	size  int
}

func (u *accessUnit) reset() {
	u.nalus = nil
	u.size = 0
}

func (u *accessUnit) fold(nalus [][]byte) error {
	if len(u.nalus)+len(nalus) > h264.MaxNALUsPerAccessUnit {
		u.reset()
		return fmt.Errorf("NALU count exceeds maximum allowed (%d)", h264.MaxNALUsPerAccessUnit)
	}

	added := 0
	for _, n := range nalus {
		added += len(n)
	}
	if u.size+added > h264.MaxAccessUnitSize {
		u.reset()
		return fmt.Errorf("access unit size (%d) is too big, maximum is %d", u.size+added, h264.MaxAccessUnitSize)
	}

	u.nalus = append(u.nalus, nalus...)
	u.size += added
	return nil
}

// take returns the accumulated NALUs and resets for the next access unit.
func (u *accessUnit) take() [][]byte {
	out := u.nalus
	u.reset()
	return out
}

// Decoder reassembles RTP/H.264 packets into access units (NALU lists).
// One Decoder serves one media stream; it is not safe for concurrent use.
type Decoder struct {
	seenFirstPacket bool
	annexBMode      bool

	frag fuaAssembler
	au   accessUnit
}

// parseSTAPA splits a STAP-A aggregation payload (everything after its
// single identifying byte) back into its constituent NALUs.
func parseSTAPA(payload []byte) ([][]byte, error) {
	var nalus [][]byte
	for len(payload) > 0 {
		if len(payload) < 2 {
			return nil, fmt.Errorf("invalid STAP-A packet (invalid size)")
		}
		size := int(payload[0])<<8 | int(payload[1])
		payload = payload[2:]
		if size == 0 {
			break // trailing padding
		}
		if size > len(payload) {
			return nil, fmt.Errorf("invalid STAP-A packet (invalid size)")
		}
		nalus = append(nalus, payload[:size])
		payload = payload[size:]
	}
	if nalus == nil {
		return nil, fmt.Errorf("STAP-A packet doesn't contain any NALU")
	}
	return nalus, nil
}

// decodeFUA folds one FU-A fragment (RFC 6184 section 5.8) into d.frag,
// returning the completed NALU once the end bit arrives.
func (d *Decoder) decodeFUA(payload []byte) ([][]byte, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("invalid FU-A packet (invalid size)")
	}

	start := payload[1]>>7 == 1
	end := payload[1]>>6&0x01 == 1

	if start {
		if end {
			return nil, fmt.Errorf("invalid FU-A packet (can't contain both a start and end bit)")
		}
		nri := (payload[0] >> 5) & 0x03
		typ := payload[1] & 0x1F
		d.frag.begin(nri, typ, payload[2:])
		d.seenFirstPacket = true
		return nil, ErrMorePacketsNeeded
	}

	if !d.frag.inProgress() {
		if !d.seenFirstPacket {
			return nil, ErrNonStartingPacketAndNoPrevious
		}
		return nil, fmt.Errorf("invalid FU-A packet (non-starting)")
	}

	if err := d.frag.add(payload[2:]); err != nil {
		return nil, err
	}
	if !end {
		return nil, ErrMorePacketsNeeded
	}

	return [][]byte{d.frag.join()}, nil
}

func (d *Decoder) decodeNALUs(pkt *rtp.Packet) ([][]byte, error) {
	if len(pkt.Payload) < 1 {
		d.frag.reset()
		return nil, fmt.Errorf("payload is too short")
	}

	typ := h264.NALUType(pkt.Payload[0] & 0x1F)
	var nalus [][]byte
	var err error

	switch typ {
	case h264.NALUTypeFUA:
		nalus, err = d.decodeFUA(pkt.Payload)
		if err != nil {
			return nil, err
		}

	case h264.NALUTypeSTAPA:
		d.frag.reset()
		nalus, err = parseSTAPA(pkt.Payload[1:])
		if err != nil {
			return nil, err
		}
		d.seenFirstPacket = true

	case h264.NALUTypeSTAPB, h264.NALUTypeMTAP16, h264.NALUTypeMTAP24, h264.NALUTypeFUB:
		d.frag.reset()
		d.seenFirstPacket = true
		return nil, fmt.Errorf("packet type not supported (%v)", typ)

	default:
		d.frag.reset()
		d.seenFirstPacket = true
		nalus = [][]byte{pkt.Payload}
	}

	return d.removeAnnexB(nalus)
}

// Decode consumes one RTP packet and returns the access unit (NALU list) it
// completes, or ErrMorePacketsNeeded if the access unit isn't done yet.
func (d *Decoder) Decode(pkt *rtp.Packet) ([][]byte, error) {
	nalus, err := d.decodeNALUs(pkt)
	if err != nil {
		return nil, err
	}

	if err := d.au.fold(nalus); err != nil {
		return nil, err
	}

	if !pkt.Marker {
		return nil, ErrMorePacketsNeeded
	}

	return d.au.take(), nil
}

// removeAnnexB strips an Annex-B start-code wrapper if the stream uses one,
// a quirk some encoders exhibit even over RTP.
func (d *Decoder) removeAnnexB(nalus [][]byte) ([][]byte, error) {
	if len(nalus) != 1 {
		return nalus, nil
	}

	nalu := nalus[0]
	if !d.annexBMode && bytes.Contains(nalu, []byte{0x00, 0x00, 0x00, 0x01}) {
		d.annexBMode = true
	}
	if !d.annexBMode {
		return nalus, nil
	}

	if !bytes.HasPrefix(nalu, []byte{0x00, 0x00, 0x00, 0x01}) {
		nalu = append([]byte{0x00, 0x00, 0x00, 0x01}, nalu...)
	}
	return h264.AnnexBUnmarshal(nalu)
}
