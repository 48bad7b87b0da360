package feedback

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAckRoundTrip(t *testing.T) {
	a := Ack{RTPSeqno: 1234, SendTSMs: 1_700_000_000_000}
	buf := make([]byte, AckLen)
	a.Marshal(buf)

	got, err := ParseAck(buf)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestFeedbackPacketRoundTrip(t *testing.T) {
	fb := FeedbackPacket{
		TimeQuantum:            1000,
		TotalBlocks:            10,
		OutOfOrderBlocks:       2,
		TotalPackets:           40,
		LostPackets:            1,
		ECCDecoderFailures:     0,
		AverageBufferOccupancy: 3,
	}
	buf := make([]byte, FeedbackLen)
	fb.Marshal(buf)

	got, err := ParseFeedbackPacket(buf)
	require.NoError(t, err)
	require.Equal(t, fb, got)
}

func TestParseAckShortBuffer(t *testing.T) {
	_, err := ParseAck(make([]byte, AckLen-1))
	require.Error(t, err)
}

func TestBitrateCellGetSetGeneration(t *testing.T) {
	c := NewBitrateCell(1_000_000)
	v, gen := c.Get()
	require.Equal(t, uint32(1_000_000), v)
	require.Equal(t, uint64(0), gen)

	c.Set(2_000_000)
	v, gen = c.Get()
	require.Equal(t, uint32(2_000_000), v)
	require.Equal(t, uint64(1), gen)
}

func TestControllerDecreasesOnCongestion(t *testing.T) {
	cell := NewBitrateCell(1_000_000)
	ctrl := NewController(cell)

	next, changed := ctrl.Apply(FeedbackPacket{TotalBlocks: 100, OutOfOrderBlocks: 50})
	require.True(t, changed)
	require.Equal(t, uint32(600_000), next)
}

func TestControllerDecreasesOnECCFailure(t *testing.T) {
	cell := NewBitrateCell(1_000_000)
	ctrl := NewController(cell)

	next, changed := ctrl.Apply(FeedbackPacket{TotalBlocks: 100, OutOfOrderBlocks: 0, ECCDecoderFailures: 1})
	require.True(t, changed)
	require.Equal(t, uint32(600_000), next)
}

// Congestion 0.18 lies in the hold range, but the decrease rule
// (congestion > 0.001) is checked first and wins.
func TestControllerDecreasesInHoldRange(t *testing.T) {
	cell := NewBitrateCell(1_000_000)
	ctrl := NewController(cell)

	next, changed := ctrl.Apply(FeedbackPacket{TotalBlocks: 100, OutOfOrderBlocks: 18})
	require.True(t, changed)
	require.Equal(t, uint32(600_000), next)
}

func TestControllerIncreasesWhenClean(t *testing.T) {
	cell := NewBitrateCell(1_000_000)
	ctrl := NewController(cell)

	next, changed := ctrl.Apply(FeedbackPacket{TotalBlocks: 100, OutOfOrderBlocks: 0})
	require.True(t, changed)
	require.Equal(t, uint32(1_400_000), next)
}

func TestControllerIgnoresZeroTotalBlocks(t *testing.T) {
	cell := NewBitrateCell(1_000_000)
	ctrl := NewController(cell)

	next, changed := ctrl.Apply(FeedbackPacket{TotalBlocks: 0})
	require.False(t, changed)
	require.Equal(t, uint32(1_000_000), next)
}

func TestCellTryAddAccumulatesAndDrainResets(t *testing.T) {
	cell := NewCell(1000)

	require.True(t, cell.TryAdd(FeedbackPacket{TotalPackets: 4, TotalBlocks: 1}, 10))
	require.True(t, cell.TryAdd(FeedbackPacket{TotalPackets: 4, TotalBlocks: 1}, 11))

	fb, seq := cell.Drain(1000)
	require.Equal(t, uint16(8), fb.TotalPackets)
	require.Equal(t, uint16(2), fb.TotalBlocks)
	require.Equal(t, uint16(11), seq)

	fb2, _ := cell.Drain(1000)
	require.Zero(t, fb2.TotalPackets)
}

func TestSenderReaderRoundTripOverLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	bitrateCell := NewBitrateCell(1_000_000)
	controller := NewController(bitrateCell)

	acceptDone := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			acceptDone <- err
			return
		}
		reader := NewReader(conn, controller)
		acceptDone <- reader.Run()
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	cell := NewCell(1000)
	require.True(t, cell.TryAdd(FeedbackPacket{TotalBlocks: 100, OutOfOrderBlocks: 50}, 5))

	sender := NewSender(clientConn, cell)
	quit := make(chan struct{})
	go sender.Run(quit)

	require.Eventually(t, func() bool {
		_, gen := bitrateCell.Get()
		return gen > 0
	}, 3*time.Second, 10*time.Millisecond)

	close(quit)
	clientConn.Close()
	<-acceptDone
}
