// Package wire implements the fixed-layout header that is prepended to
// every media-channel UDP datagram (spec.md section 3, "Wire datagram" and
// section 4.1). It is grounded on the original Rust LVErasureInformation
// type (net/src/packet.rs) and mirrors the teacher's own fixed-header
// philosophy (gortsplib's pkg/base request/response headers are
// length-prefixed text; here the header is binary and fixed-size so the
// receiver never has to scan for the RTP offset).
package wire

import (
	"encoding/binary"

	"github.com/lightvideo/lvstream/internal/liberrors"
)

// Constants from spec.md section 3/4: fixed R originals + K recovery shards
// per FEC block, and the UDP MTU the wire is budgeted against.
const (
	OriginalShards = 4    // R
	RecoveryShards = 2    // K
	MTU            = 1200 // bytes
)

// HeaderLen is the number of bytes occupied by a marshalled Header:
// block_id(4) + min_fragment_size(4) + recovery_pkt(1) + fragment_index(4) + pkt_sizes(2*R).
const HeaderLen = 4 + 4 + 1 + 4 + 2*OriginalShards

// ShardSize is S from spec.md section 3: the smallest multiple of 64 that
// fits MTU minus the header.
const ShardSize = ((MTU - HeaderLen) / 64) * 64

// Header is the fixed-layout wire header prepended to every media datagram.
// All integers are big-endian on the wire.
type Header struct {
	BlockID         uint32
	MinFragmentSize uint32
	RecoveryPkt     bool
	FragmentIndex   uint32
	PktSizes        [OriginalShards]uint16
}

// Put serializes h into buf, which must be at least HeaderLen bytes.
// Put is pure and infallible for a correctly sized buffer.
func (h Header) Put(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], h.BlockID)
	binary.BigEndian.PutUint32(buf[4:8], h.MinFragmentSize)
	if h.RecoveryPkt {
		buf[8] = 1
	} else {
		buf[8] = 0
	}
	binary.BigEndian.PutUint32(buf[9:13], h.FragmentIndex)
	for i, sz := range h.PktSizes {
		binary.BigEndian.PutUint16(buf[13+i*2:15+i*2], sz)
	}
}

// Parse reads a Header from the start of buf and returns it along with the
// payload sub-slice (a zero-copy view into buf). It returns ErrMalformed if
// buf is shorter than HeaderLen.
func Parse(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderLen {
		return Header{}, nil, liberrors.ErrMalformed{Reason: "buffer shorter than header"}
	}

	var h Header
	h.BlockID = binary.BigEndian.Uint32(buf[0:4])
	h.MinFragmentSize = binary.BigEndian.Uint32(buf[4:8])
	h.RecoveryPkt = buf[8] != 0
	h.FragmentIndex = binary.BigEndian.Uint32(buf[9:13])
	for i := range h.PktSizes {
		h.PktSizes[i] = binary.BigEndian.Uint16(buf[13+i*2 : 15+i*2])
	}

	return h, buf[HeaderLen:], nil
}

// Build writes a header followed by payload into buf, which must be at
// least HeaderLen+len(payload) bytes. It returns the total number of bytes
// written.
func Build(buf []byte, h Header, payload []byte) int {
	h.Put(buf)
	n := copy(buf[HeaderLen:], payload)
	return HeaderLen + n
}
