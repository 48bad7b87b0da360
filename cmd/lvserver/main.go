// Command lvserver is the server half of the streaming pipeline (spec.md
// section 6 CLI): it captures, encodes, packetizes, FEC-protects, and sends
// H.264 video to a client, reads the client's feedback stream into an AIMD
// bitrate controller, and receives input events for injection into the
// local windowing system. Grounded on server/src/main.rs in
// original_source/ and the teacher's cmd/alohartcd flag-and-dispatch shape.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/lightvideo/lvstream/internal/server"
	"github.com/lightvideo/lvstream/internal/stats"
)

func main() {
	flag.Parse()

	if flagHelp {
		fmt.Println(helpString)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing subcommand (server or bench)")
		fmt.Fprintln(os.Stderr, helpString)
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "server":
		err = runServer(args[1:])
	case "bench":
		err = runBench(args[1:])
	default:
		err = fmt.Errorf("unknown subcommand %q", args[0])
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: lvserver server <bind_addr> <target_addr>")
	}

	collector := stats.New()

	cfg := server.Config{
		BindAddr:          args[0],
		TargetAddr:        args[1],
		FPS:               flagFPS,
		InitialBitrateBps: flagInitialBitrate,
		Capturer:          blackCapturer{width: flagWidth, height: flagHeight},
		Encoder:           &passthroughEncoder{bitrate: flagInitialBitrate},
		Converter:         identityConverter{},
		InputEmulator:     newLogEmulator(),
		Stats:             collector,
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	quit := make(chan struct{})
	go waitForSignal(quit)

	err = srv.Run(quit)

	if ferr := collector.Flush(flagStatsDir); ferr != nil {
		fmt.Fprintln(os.Stderr, "stats flush:", ferr)
	}
	return err
}

func runBench(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: lvserver bench <bind_addr> <target_addr>")
	}

	cfg := server.BenchConfig{
		BindAddr:   args[0],
		TargetAddr: args[1],
		Iterations: flagBenchIterations,
		Capturer:   blackCapturer{width: flagWidth, height: flagHeight},
		Encoder:    &passthroughEncoder{bitrate: flagInitialBitrate},
		Converter:  identityConverter{},
	}

	result, err := server.RunBenchmark(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("iterations:   %d\n", result.Iterations)
	fmt.Printf("capture avg:  %s\n", result.CaptureAvg)
	fmt.Printf("process avg:  %s\n", result.ProcessAvg)
	fmt.Printf("send avg:     %s\n", result.SendAvg)
	return nil
}

func waitForSignal(quit chan<- struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	close(quit)
}
