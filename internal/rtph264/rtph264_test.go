package rtph264

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSingleNALU(t *testing.T) {
	enc, err := NewEncoder(96)
	require.NoError(t, err)

	nalu := bytes.Repeat([]byte{0x65, 0x01, 0x02}, 10) // fits in one packet
	pkts, err := enc.EncodeAccessUnit([][]byte{nalu}, 90000)
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	require.True(t, pkts[0].Marker)

	dec := &Decoder{}
	out, err := dec.Decode(pkts[0])
	require.NoError(t, err)
	require.Equal(t, [][]byte{nalu}, out)
}

func TestEncodeDecodeFragmented(t *testing.T) {
	enc, err := NewEncoder(96)
	enc.PayloadMaxSize = 64
	require.NoError(t, err)

	nalu := append([]byte{0x65}, bytes.Repeat([]byte{0xAB}, 500)...)
	pkts, err := enc.EncodeAccessUnit([][]byte{nalu}, 12345)
	require.NoError(t, err)
	require.Greater(t, len(pkts), 1)

	dec := &Decoder{}
	var out [][]byte
	for i, pkt := range pkts {
		res, err := dec.Decode(pkt)
		if i < len(pkts)-1 {
			require.ErrorIs(t, err, ErrMorePacketsNeeded)
			continue
		}
		require.NoError(t, err)
		out = res
	}
	require.Equal(t, [][]byte{nalu}, out)
}

func TestEncodeDecodeAggregated(t *testing.T) {
	enc, err := NewEncoder(96)
	require.NoError(t, err)

	sps := []byte{0x67, 0x01, 0x02}
	pps := []byte{0x68, 0x03, 0x04}
	pkts, err := enc.EncodeAccessUnit([][]byte{sps, pps}, 0)
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	dec := &Decoder{}
	out, err := dec.Decode(pkts[0])
	require.NoError(t, err)
	require.Equal(t, [][]byte{sps, pps}, out)
}

func TestSSRCIsFresh(t *testing.T) {
	enc1, err := NewEncoder(96)
	require.NoError(t, err)
	enc2, err := NewEncoder(96)
	require.NoError(t, err)
	require.NotEqual(t, enc1.SSRC, enc2.SSRC)
}
