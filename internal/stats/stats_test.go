package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlushWritesTimeSeriesCSV(t *testing.T) {
	dir := t.TempDir()

	c := New()
	c.Register("latency", TimeSeries)
	c.Update("latency", DurationPoint(10*time.Millisecond))
	c.Update("latency", DurationPoint(20*time.Millisecond))

	require.NoError(t, c.Flush(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	contents, err := os.ReadFile(filepath.Join(dir, entries[0].Name(), "latency"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "index,time_elapsed_ns")
	require.Contains(t, string(contents), "10000000")
	require.Contains(t, string(contents), "20000000")
}

func TestFlushWritesAggregateCount(t *testing.T) {
	dir := t.TempDir()

	c := New()
	c.Register("dropped_packets", Aggregate)
	c.Update("dropped_packets", IncrementPoint())
	c.Update("dropped_packets", IncrementPoint())
	c.Update("dropped_packets", IncrementPoint())

	require.NoError(t, c.Flush(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	contents, err := os.ReadFile(filepath.Join(dir, entries[0].Name(), "dropped_packets"))
	require.NoError(t, err)
	require.Equal(t, "3", string(contents))
}

func TestUpdateForUnregisteredSeriesIsDropped(t *testing.T) {
	dir := t.TempDir()

	c := New()
	c.Update("nonexistent", IncrementPoint())
	require.NoError(t, c.Flush(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	inner, err := os.ReadDir(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Empty(t, inner)
}
