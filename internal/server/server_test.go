package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightvideo/lvstream/internal/codec"
	"github.com/lightvideo/lvstream/internal/feedback"
	"github.com/lightvideo/lvstream/internal/logging"
)

func TestOffsetAddrAppliesPortOffset(t *testing.T) {
	feedbackAddr, err := offsetAddr("0.0.0.0:5000", FeedbackPortOffset)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:5002", feedbackAddr)

	inputAddr, err := offsetAddr("0.0.0.0:5000", InputPortOffset)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:5003", inputAddr)
}

func TestOffsetAddrRejectsMalformedAddr(t *testing.T) {
	_, err := offsetAddr("not-an-addr", FeedbackPortOffset)
	require.Error(t, err)
}

type countingEncoder struct {
	calls int
	last  uint32
}

func (e *countingEncoder) Encode(frame codec.Frame, ptsMs uint64) ([]byte, error) {
	return nil, codec.ErrNeedMoreInput
}

func (e *countingEncoder) SetBitrate(bps uint32) error {
	e.calls++
	e.last = bps
	return nil
}

func (e *countingEncoder) Close() error { return nil }

func TestApplyBitrateIfChangedSkipsAtInitialGeneration(t *testing.T) {
	enc := &countingEncoder{}
	s := &Server{
		cfg:         Config{Encoder: enc},
		bitrateCell: feedback.NewBitrateCell(1_000_000),
		log:         logging.New("test"),
	}

	s.applyBitrateIfChanged()
	require.Equal(t, 0, enc.calls)
}

func TestApplyBitrateIfChangedAppliesOnGenerationBump(t *testing.T) {
	enc := &countingEncoder{}
	cell := feedback.NewBitrateCell(1_000_000)
	s := &Server{
		cfg:         Config{Encoder: enc},
		bitrateCell: cell,
		log:         logging.New("test"),
	}

	cell.Set(2_400_000)
	s.applyBitrateIfChanged()
	require.Equal(t, 1, enc.calls)
	require.Equal(t, uint32(2_400_000), enc.last)

	s.applyBitrateIfChanged()
	require.Equal(t, 1, enc.calls, "second call with no new generation should not re-apply")
}
