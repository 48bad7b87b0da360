// Package capture defines the display-capture boundary spec.md section 1
// places out of scope ("the display capture source (produces RGB frames at
// a target rate)"). Grounded on the original source's capture::LVCapturer
// trait (server/src/capture/mod.rs in original_source/), a single-method
// interface returning one RGB frame per call; the media sender loop
// (internal/server) drives it from its own paced goroutine rather than the
// capturer owning a thread, matching streaming_server.rs's
// start_capture_thread loop shape (spin-sleep paced capture feeding a
// bounded channel).
package capture

import "github.com/lightvideo/lvstream/internal/codec"

// Capturer produces successive RGB frames from a display source. One
// Capturer instance is driven by exactly one goroutine.
type Capturer interface {
	// Capture blocks until the next frame is available and returns it.
	Capture() (codec.Frame, error)

	// Close releases any resources held by the capturer.
	Close() error
}
