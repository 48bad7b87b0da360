package fec

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

// capture is a PacketWriter that records every datagram handed to it.
type capture struct {
	datagrams [][]byte
}

func (c *capture) WritePacket(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	c.datagrams = append(c.datagrams, cp)
	return nil
}

func testPacket(seq uint16, payload []byte) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      90000,
			SSRC:           0xabcdef,
		},
		Payload: payload,
	}
}

func sendBlock(t *testing.T, enc *Encoder, w *capture, startSeq uint16) {
	t.Helper()
	for i := 0; i < 4; i++ {
		pkt := testPacket(startSeq+uint16(i), []byte{byte(i), byte(i + 1), byte(i + 2)})
		require.NoError(t, enc.Send(pkt, w))
	}
}

// TestCleanBlock covers S1: no loss, every original reaches the decoder
// in order, and no recovery shard is ever needed for reconstruction.
func TestCleanBlock(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	dec, err := NewDecoder()
	require.NoError(t, err)

	w := &capture{}
	sendBlock(t, enc, w, 0)
	require.Len(t, w.datagrams, 6) // 4 originals + 2 recovery

	var received []*rtp.Packet
	for _, d := range w.datagrams {
		pkts, err := dec.Ingest(d)
		require.NoError(t, err)
		received = append(received, pkts...)
	}

	require.Len(t, received, 4)
	for i, pkt := range received {
		require.EqualValues(t, i, pkt.SequenceNumber)
	}
	require.Zero(t, dec.Stats.ECCDecoderFailures)
}

// TestSingleLossRecovered covers S2: block 8 loses original index 2; the
// decoder must reconstruct it from the recovery shards once block 9 starts,
// and the upward emission order must be 0,1,2,3.
func TestSingleLossRecovered(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	dec, err := NewDecoder()
	require.NoError(t, err)
	enc.blockID = 8

	w := &capture{}
	sendBlock(t, enc, w, 100) // block 8: datagrams[0..3] originals, [4..5] recovery
	sendBlock(t, enc, w, 104) // block 9

	var received []*rtp.Packet
	for i, d := range w.datagrams {
		if i == 2 { // drop original index 2 of block 8
			continue
		}
		pkts, err := dec.Ingest(d)
		require.NoError(t, err)
		received = append(received, pkts...)
	}

	require.GreaterOrEqual(t, len(received), 4)
	// first four delivered packets must be the reconstructed block 8 in order
	for i := 0; i < 4; i++ {
		require.EqualValues(t, 100+i, received[i].SequenceNumber)
	}
	require.EqualValues(t, 1, dec.Stats.TotalBlocks)
	require.EqualValues(t, 1, dec.Stats.OutOfOrderBlocks)
	require.Zero(t, dec.Stats.ECCDecoderFailures)
}

// TestDoubleLossUnrecoverable covers S3: block 10 loses two originals and
// one recovery shard, leaving only 3 of the 6 shards -- one short of the 4
// needed to reconstruct anything. Only the directly-received originals
// should surface, and the failure counter must increment.
func TestDoubleLossUnrecoverable(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	dec, err := NewDecoder()
	require.NoError(t, err)
	enc.blockID = 10

	w := &capture{}
	sendBlock(t, enc, w, 200) // datagrams[0..3] originals 0-3, [4..5] recovery 0-1
	sendBlock(t, enc, w, 204)

	drop := map[int]bool{1: true, 2: true, 5: true} // originals 1,2 and recovery 1
	var received []*rtp.Packet
	for i, d := range w.datagrams {
		if drop[i] {
			continue
		}
		pkts, err := dec.Ingest(d)
		require.NoError(t, err)
		received = append(received, pkts...)
	}

	require.EqualValues(t, 1, dec.Stats.ECCDecoderFailures)
	var seqs []uint16
	for _, p := range received {
		seqs = append(seqs, p.SequenceNumber)
	}
	require.Contains(t, seqs, uint16(200))
	require.Contains(t, seqs, uint16(203))
	require.NotContains(t, seqs, uint16(201))
	require.NotContains(t, seqs, uint16(202))
}

// TestLateDatagramFromClosedBlockIsDropped documents and tests spec.md
// section 9's "block closure detection" rule: a packet arriving from a
// block older than the one currently open must be discarded outright, not
// folded into the new block or double-counted in the stats.
func TestLateDatagramFromClosedBlockIsDropped(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	dec, err := NewDecoder()
	require.NoError(t, err)

	w := &capture{}
	sendBlock(t, enc, w, 0)   // block 0: datagrams[0..5]
	sendBlock(t, enc, w, 100) // block 1: datagrams[6..11]

	// Establish block 1 as the decoder's current block.
	pkts, err := dec.Ingest(w.datagrams[6])
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	require.EqualValues(t, 1, dec.cur.id)

	statsBefore := dec.Stats

	late, err := dec.Ingest(w.datagrams[0]) // original from the superseded block 0
	require.NoError(t, err)
	require.Empty(t, late)
	require.Equal(t, statsBefore, dec.Stats)
	require.EqualValues(t, 1, dec.cur.id)
}

func TestBlockIDMonotonic(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	require.EqualValues(t, 0, enc.blockID)
	w := &capture{}
	sendBlock(t, enc, w, 0)
	require.EqualValues(t, 1, enc.blockID)
}
