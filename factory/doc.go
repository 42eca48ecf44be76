// Package factory creates frame sinks for reassembled VP9 frames.
//
// The factory hides the choice between the in-memory recording sink used in
// tests and the production sinks in the real package:
//
//   - UseSimulation: testing.RecordingSink
//   - Directory set: real.DirectorySink
//   - otherwise: real.LogSink
//
// # Configuration
//
// NewSinkFactory reads environment overrides:
//   - VP9DEPACK_USE_SIMULATION: "true" or "false"
//   - VP9DEPACK_OUTPUT_DIR: directory for frame files
//   - VP9DEPACK_MAX_FRAMES: frames a recording sink retains, 0 for unlimited
//
// Invalid values are logged and ignored.
//
// # Usage
//
//	f := factory.NewSinkFactory()
//	sink, err := f.CreateSink()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sink.Close()
package factory
