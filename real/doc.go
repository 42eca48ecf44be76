// Package real provides production frame sinks for reassembled VP9 frames.
//
// Both sinks implement interfaces.IFrameSink:
//
//   - DirectorySink writes each frame to its own file under
//     <dir>/stream-<index>/<n>-<timestamp>.vp9, one subdirectory per stream.
//   - LogSink logs frame metadata through logrus and drops the data.
//
// # Usage
//
//	sink, err := real.NewDirectorySink("/var/lib/vp9depack")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sink.Close()
//
//	receiver := rtp.NewReceiver(conn, demuxer, sink, nil)
//
// The factory package is the usual way to pick a sink.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package real
