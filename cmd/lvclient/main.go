// Command lvclient is the client half of the streaming pipeline (spec.md
// section 6 CLI): it receives FEC-protected RTP/H.264 over UDP, decodes and
// color-converts into a double-buffered frame for the UI, sends periodic
// feedback and an ACK over TCP, and streams local input events to the
// server. Grounded on client/src/main.rs in original_source/ and the
// teacher's cmd/alohartcd flag-and-dispatch shape.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/lightvideo/lvstream/internal/client"
	"github.com/lightvideo/lvstream/internal/stats"
)

func main() {
	flag.Parse()

	if flagHelp {
		fmt.Println(helpString)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: lvclient <bind_addr> <server_addr>")
		fmt.Fprintln(os.Stderr, helpString)
		os.Exit(1)
	}

	if err := run(args[0], args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(bindAddr, serverAddr string) error {
	collector := stats.New()

	// The local input-capture source (keyboard/mouse hooks) is an
	// out-of-scope collaborator (spec.md section 1); with none wired, the
	// input sender goroutine simply has nothing to send.
	inputEvents := make(chan interface{})
	close(inputEvents)

	cfg := client.Config{
		BindAddr:    bindAddr,
		ServerAddr:  serverAddr,
		InputLocal:  flagInputBind,
		Decoder:     &passthroughDecoder{width: flagWidth, height: flagHeight},
		Converter:   identityConverter{},
		InputEvents: inputEvents,
		Stats:       collector,
	}

	cl, err := client.New(cfg)
	if err != nil {
		return err
	}

	quit := make(chan struct{})
	go waitForSignal(quit)

	err = cl.Run(quit)

	if ferr := collector.Flush(flagStatsDir); ferr != nil {
		fmt.Fprintln(os.Stderr, "stats flush:", ferr)
	}
	return err
}

func waitForSignal(quit chan<- struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	close(quit)
}
