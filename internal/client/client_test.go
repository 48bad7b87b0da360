package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightvideo/lvstream/internal/fec"
	"github.com/lightvideo/lvstream/internal/feedback"
	"github.com/lightvideo/lvstream/internal/logging"
)

func TestOffsetAddrAppliesPortOffset(t *testing.T) {
	feedbackAddr, err := offsetAddr("10.0.0.1:5000", feedbackPortOffset)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:5002", feedbackAddr)

	inputAddr, err := offsetAddr("10.0.0.1:5000", inputPortOffset)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:5003", inputAddr)
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	fecDec, err := fec.NewDecoder()
	require.NoError(t, err)
	return &Client{
		fecDec: fecDec,
		fbCell: feedback.NewCell(1000),
		log:    logging.New("test"),
	}
}

func TestPublishStatsNoopWhenNothingChanged(t *testing.T) {
	c := newTestClient(t)
	c.publishStats(0)

	fb, _ := c.fbCell.Drain(1000)
	require.Zero(t, fb.TotalPackets)
}

func TestPublishStatsPublishesDelta(t *testing.T) {
	c := newTestClient(t)
	c.fecDec.Stats = fec.Counters{TotalPackets: 4, TotalBlocks: 1}

	c.publishStats(42)

	fb, seq := c.fbCell.Drain(1000)
	require.Equal(t, uint16(4), fb.TotalPackets)
	require.Equal(t, uint16(1), fb.TotalBlocks)
	require.Equal(t, uint16(42), seq)

	// lastStats now mirrors the published snapshot; an unchanged Stats
	// read should not republish.
	c.publishStats(42)
	fb2, _ := c.fbCell.Drain(1000)
	require.Zero(t, fb2.TotalPackets)
}
