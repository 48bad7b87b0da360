package main

import (
	flag "github.com/spf13/pflag"
)

var (
	flagWidth     int
	flagHeight    int
	flagInputBind string
	flagStatsDir  string
	flagHelp      bool
)

func init() {
	flag.IntVarP(&flagWidth, "width", "x", 1920, "Expected decoded frame width")
	flag.IntVarP(&flagHeight, "height", "y", 1080, "Expected decoded frame height")
	flag.StringVarP(&flagInputBind, "input-bind", "i", ":0", "Local bind address for the input event sender")
	flag.StringVarP(&flagStatsDir, "stats-dir", "s", "", "Directory statistics are flushed under (default: statout)")
	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

const helpString = `lvclient: client half of the streaming pipeline

Usage:
  lvclient <bind_addr> <server_addr>

  bind_addr    UDP endpoint the media socket binds, e.g. :5000
  server_addr  server media endpoint, used to derive the feedback and input
               connect addresses (P_media+2, P_media+3)

Options:
  -x, --width=NUM        Expected decoded frame width (default: 1920)
  -y, --height=NUM       Expected decoded frame height (default: 1080)
  -i, --input-bind=ADDR  Local bind address for the input event sender (default: :0)
  -s, --stats-dir=DIR    Directory statistics are flushed under (default: statout)
  -h, --help             Print this message and exit`
