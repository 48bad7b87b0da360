package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		BlockID:         7,
		MinFragmentSize: OriginalShards,
		RecoveryPkt:     true,
		FragmentIndex:   1,
		PktSizes:        [OriginalShards]uint16{100, 200, 300, 400},
	}
	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	buf := make([]byte, HeaderLen+len(payload))
	n := Build(buf, h, payload)
	require.Equal(t, len(buf), n)

	parsed, body, err := Parse(buf[:n])
	require.NoError(t, err)
	require.Equal(t, h, parsed)
	require.Equal(t, payload, body)
}

func TestParseMalformed(t *testing.T) {
	_, _, err := Parse(make([]byte, HeaderLen-1))
	require.Error(t, err)
}

func TestShardSizeMultipleOf64(t *testing.T) {
	require.Zero(t, ShardSize%64)
	require.LessOrEqual(t, HeaderLen+ShardSize, MTU)
}
