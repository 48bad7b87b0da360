// Package stats implements the process-wide statistics sink described in
// spec.md section 6 ("Persisted state") and section 9 ("Global singletons":
// "An explicit owned handle threaded through constructors is preferable to
// ambient singletons; the Ctrl-C path needs a direct reference to signal
// quit."). It is grounded on the original source's statistics/src/
// {collector,statistics}.rs: a single goroutine owns a map of named series,
// reached only through channel sends from an owned *Collector handle, and
// a Flush that writes one CSV (or one counter file) per series to disk.
package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lightvideo/lvstream/internal/liberrors"
	"github.com/lightvideo/lvstream/internal/logging"
)

// DataType selects how a registered series is stored and later flushed.
type DataType int

const (
	// TimeSeries appends every Point it's given, in arrival order.
	TimeSeries DataType = iota
	// Aggregate keeps a single running count, incremented by Increment points.
	Aggregate
)

type pointKind int

const (
	kindDuration pointKind = iota
	kindFloat
	kindIncrement
)

// Point is one observation pushed into a registered series. Construct one
// with DurationPoint, FloatPoint, or IncrementPoint.
type Point struct {
	kind     pointKind
	duration time.Duration
	float    float32
}

// DurationPoint records an elapsed time, for TimeSeries registered with
// duration-valued points (e.g. per-tick loop latency).
func DurationPoint(d time.Duration) Point { return Point{kind: kindDuration, duration: d} }

// FloatPoint records a scalar value, for TimeSeries registered with
// float-valued points (e.g. bitrate or RTT samples).
func FloatPoint(v float32) Point { return Point{kind: kindFloat, float: v} }

// IncrementPoint bumps an Aggregate series by one.
func IncrementPoint() Point { return Point{kind: kindIncrement} }

type series struct {
	dataType DataType
	points   []Point
	count    uint64
}

type registerMsg struct {
	name     string
	dataType DataType
}

type updateMsg struct {
	name  string
	point Point
}

type flushMsg struct {
	dir  string
	done chan error
}

// Collector is an owned handle to the statistics goroutine. Register and
// Update are fire-and-forget (never block the caller's hot path); Flush
// blocks until every pending update has been applied and the run's CSVs are
// written.
type Collector struct {
	registerCh chan registerMsg
	updateCh   chan updateMsg
	flushCh    chan flushMsg
	log        *logging.Logger
}

// New starts the statistics goroutine and returns an owned handle to it.
func New() *Collector {
	c := &Collector{
		registerCh: make(chan registerMsg, 64),
		updateCh:   make(chan updateMsg, 4096),
		flushCh:    make(chan flushMsg),
		log:        logging.New("stats"),
	}
	go c.run()
	return c
}

// Register declares a new named series. It must be called before any
// Update for that name; an Update for an unregistered name is dropped and
// logged, matching the original collector's "could not find data" warning.
func (c *Collector) Register(name string, dataType DataType) {
	c.registerCh <- registerMsg{name: name, dataType: dataType}
}

// Update pushes one observation onto a registered series. It never blocks
// on the statistics goroutine doing I/O; the channel send itself is the
// only potential wait, and the channel is generously buffered for exactly
// this reason.
func (c *Collector) Update(name string, p Point) {
	c.updateCh <- updateMsg{name: name, point: p}
}

// Flush drains all pending updates, writes one file per registered series
// under dir, and returns once the write completes. The Ctrl-C path
// (spec.md section 5 "Cancellation") calls this and waits for it before
// the process exits.
func (c *Collector) Flush(dir string) error {
	done := make(chan error, 1)
	c.flushCh <- flushMsg{dir: dir, done: done}
	return <-done
}

func (c *Collector) run() {
	data := make(map[string]*series)

	// A Flush is held in pending until the messages queued ahead of it have
	// been applied; select alone picks among ready channels at random.
	var pending *flushMsg
	for {
		flushCh := c.flushCh
		if pending != nil && len(c.registerCh)+len(c.updateCh) > 0 {
			flushCh = nil
		} else if pending != nil {
			pending.done <- writeAll(dir(pending.dir), data)
			pending = nil
		}

		select {
		case m := <-c.registerCh:
			data[m.name] = &series{dataType: m.dataType}

		case m := <-c.updateCh:
			for len(c.registerCh) > 0 { // a Register must not be overtaken
				r := <-c.registerCh
				data[r.name] = &series{dataType: r.dataType}
			}
			s, ok := data[m.name]
			if !ok {
				c.log.Warnf("stats: update for unregistered series %q dropped", m.name)
				continue
			}
			switch s.dataType {
			case TimeSeries:
				if m.point.kind == kindIncrement {
					c.log.Warnf("stats: series %q is TimeSeries, got Increment point", m.name)
					continue
				}
				s.points = append(s.points, m.point)
			case Aggregate:
				if m.point.kind != kindIncrement {
					c.log.Warnf("stats: series %q is Aggregate, got non-Increment point", m.name)
					continue
				}
				s.count++
			}

		case m := <-flushCh:
			pending = &m
		}
	}
}

func dir(base string) string {
	if base == "" {
		return "statout"
	}
	return base
}

func writeAll(base string, data map[string]*series) error {
	outDir := filepath.Join(base, time.Now().UTC().Format(time.RFC3339))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return liberrors.ErrFatalInit{Component: "stats.Flush", Err: err}
	}

	for name, s := range data {
		path := filepath.Join(outDir, name)
		var err error
		switch s.dataType {
		case TimeSeries:
			err = writeTimeSeries(path, s.points)
		case Aggregate:
			err = os.WriteFile(path, []byte(strconv.FormatUint(s.count, 10)), 0o644)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeTimeSeries(path string, points []Point) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(points) == 0 {
		return nil
	}

	switch points[0].kind {
	case kindDuration:
		if _, err := fmt.Fprintln(f, "index,time_elapsed_ns"); err != nil {
			return err
		}
		for i, p := range points {
			if _, err := fmt.Fprintf(f, "%d,%d\n", i, p.duration.Nanoseconds()); err != nil {
				return err
			}
		}
	default:
		if _, err := fmt.Fprintln(f, "index,value"); err != nil {
			return err
		}
		for i, p := range points {
			if _, err := fmt.Fprintf(f, "%d,%g\n", i, p.float); err != nil {
				return err
			}
		}
	}
	return nil
}
