// Package interfaces defines the abstractions between VP9 frame reassembly
// and whatever consumes the frames.
//
// [IFrameSink] receives every complete frame a demuxer produces:
//
//	sink, err := factory.NewSinkFactory().CreateSink()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sink.Close()
//	err = sink.WriteFrame(frame)
//
// The real package provides production sinks (files, logs) and the testing
// package an in-memory recorder. The factory package picks one from a
// [SinkConfig].
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; frames of different
// streams may be written from different goroutines.
package interfaces
