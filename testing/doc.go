// Package testing provides in-memory stand-ins for exercising VP9
// depacketization without files or networks.
//
// # Overview
//
// RecordingSink implements interfaces.IFrameSink and keeps every frame it is
// given, so tests can assert on exactly what a demuxer or receiver produced.
// LossyChannel damages a sequence of RTP datagrams with seeded drops and
// duplicates, so loss-tolerance tests are reproducible.
//
// # Usage
//
//	sink := testing.NewRecordingSink(nil)
//	channel, _ := testing.NewLossyChannel(42, 0.1, 0.05)
//
//	for _, raw := range channel.Transmit(datagrams) {
//	    frame, err := demuxer.HandlePacket(raw)
//	    if err == nil && frame != nil {
//	        sink.WriteFrame(frame)
//	    }
//	}
//	frames := sink.Frames()
//
// The package name shadows the standard library; import it under an alias
// such as testsim.
package testing
