package server

import (
	"net"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/rtp"

	"github.com/lightvideo/lvstream/internal/capture"
	"github.com/lightvideo/lvstream/internal/codec"
	"github.com/lightvideo/lvstream/internal/colorconv"
	"github.com/lightvideo/lvstream/internal/fec"
	"github.com/lightvideo/lvstream/internal/liberrors"
	"github.com/lightvideo/lvstream/internal/logging"
	"github.com/lightvideo/lvstream/internal/rtph264"
)

// BenchConfig collects the collaborators and scalars for a "server bench"
// run (spec.md section 6 CLI), grounded on benchmark/mod.rs in
// original_source/: a fixed iteration count, timing capture/encode/send
// separately, and averaging.
type BenchConfig struct {
	BindAddr   string
	TargetAddr string
	Iterations int

	Capturer  capture.Capturer
	Encoder   codec.Encoder
	Converter colorconv.Converter
}

// BenchResult reports the averaged per-stage timing from RunBenchmark.
type BenchResult struct {
	Iterations int
	CaptureAvg time.Duration
	ProcessAvg time.Duration
	SendAvg    time.Duration
}

// RunBenchmark captures, encodes, packetizes, and FEC-sends Iterations
// frames back to back (no pacing), reporting the average time spent in
// each stage. It never touches the feedback or input channels.
func RunBenchmark(cfg BenchConfig) (BenchResult, error) {
	log := logging.New("bench")

	local, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		return BenchResult{}, liberrors.ErrFatalInit{Component: "server.RunBenchmark", Err: err}
	}
	remote, err := net.ResolveUDPAddr("udp", cfg.TargetAddr)
	if err != nil {
		return BenchResult{}, liberrors.ErrFatalInit{Component: "server.RunBenchmark", Err: err}
	}
	conn, err := net.DialUDP("udp", local, remote)
	if err != nil {
		return BenchResult{}, liberrors.ErrFatalInit{Component: "server.RunBenchmark", Err: err}
	}
	defer conn.Close()

	rtpEnc, err := rtph264.NewEncoder(RTPPayloadType)
	if err != nil {
		return BenchResult{}, err
	}
	fecEnc, err := fec.NewEncoder()
	if err != nil {
		return BenchResult{}, err
	}
	writer := udpWriter{conn: conn}

	start := time.Now()
	var captureTotal, processTotal, sendTotal time.Duration
	var pts uint32

	for i := 0; i < cfg.Iterations; i++ {
		before := time.Now()
		frame, err := cfg.Capturer.Capture()
		if err != nil {
			log.Errorf("iteration %d capture: %v", i, err)
			continue
		}
		captureTotal += time.Since(before)

		before = time.Now()
		yuv, err := cfg.Converter.ToI420(frame)
		if err != nil {
			log.Errorf("iteration %d convert: %v", i, err)
			continue
		}
		bitstream, err := cfg.Encoder.Encode(yuv, uint64(time.Since(start).Milliseconds()))
		if err != nil && err != codec.ErrNeedMoreInput {
			log.Errorf("iteration %d encode: %v", i, err)
			continue
		}
		var pkts []*rtp.Packet
		if err == nil {
			nalus, aerr := h264.AnnexBUnmarshal(bitstream)
			if aerr != nil {
				log.Errorf("iteration %d annex-b: %v", i, aerr)
				continue
			}
			pkts, err = rtpEnc.EncodeAccessUnit(nalus, pts)
			if err != nil {
				log.Errorf("iteration %d rtp: %v", i, err)
				continue
			}
		}
		processTotal += time.Since(before)

		before = time.Now()
		for _, p := range pkts {
			if err := fecEnc.Send(p, writer); err != nil {
				log.Warnf("iteration %d fec send: %v", i, err)
			}
		}
		sendTotal += time.Since(before)

		pts += uint32(rtph264.ClockRate / 60)
	}

	n := time.Duration(cfg.Iterations)
	if n == 0 {
		n = 1
	}
	return BenchResult{
		Iterations: cfg.Iterations,
		CaptureAvg: captureTotal / n,
		ProcessAvg: processTotal / n,
		SendAvg:    sendTotal / n,
	}, nil
}
