package main

import (
	flag "github.com/spf13/pflag"
)

var (
	flagFPS             int
	flagInitialBitrate  uint32
	flagWidth           int
	flagHeight          int
	flagBenchIterations int
	flagStatsDir        string
	flagHelp            bool
)

func init() {
	flag.IntVarP(&flagFPS, "fps", "f", 60, "Capture/send rate, in frames per second")
	flag.Uint32VarP(&flagInitialBitrate, "bitrate", "b", 4_000_000, "Initial target bitrate, in bits per second")
	flag.IntVarP(&flagWidth, "width", "x", 1920, "Capture width")
	flag.IntVarP(&flagHeight, "height", "y", 1080, "Capture height")
	flag.IntVarP(&flagBenchIterations, "iterations", "n", 1000, "Iteration count for the bench subcommand")
	flag.StringVarP(&flagStatsDir, "stats-dir", "s", "", "Directory statistics are flushed under (default: statout)")
	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

const helpString = `lvserver: server half of the streaming pipeline

Usage:
  lvserver server <bind_addr> <target_addr>   Capture, encode, and stream to target_addr
  lvserver bench <bind_addr> <target_addr>    Timed capture/encode/send micro-benchmark

Options:
  -f, --fps=NUM           Capture/send rate, in frames per second (default: 60)
  -b, --bitrate=NUM       Initial target bitrate, in bits per second (default: 4000000)
  -x, --width=NUM         Capture width (default: 1920)
  -y, --height=NUM        Capture height (default: 1080)
  -n, --iterations=NUM    Iteration count for the bench subcommand (default: 1000)
  -s, --stats-dir=DIR     Directory statistics are flushed under (default: statout)
  -h, --help              Print this message and exit`
