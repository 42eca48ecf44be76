// Package rtp carries VP9 video over RTP.
//
// It sits between the network and the vp9 package: datagrams are parsed with
// github.com/pion/rtp, routed by SSRC to a Stream, and each Stream feeds its
// own vp9.PayloadContext.
//
// # Receiving
//
//	demuxer, err := rtp.NewDemuxer(rtp.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	receiver := rtp.NewReceiver(conn, demuxer, sink, nil)
//	err = receiver.Run(ctx)
//
// Streams are created on first sight when Config.AutoRegister is set, or
// explicitly with Demuxer.InitStream. Each stream gets an index in
// registration order and a UUID that appears in its log entries.
//
// Sequence numbers are tracked per stream. Gaps are counted and logged but
// never repaired or reordered; the payload context drops a partial frame when
// the RTP timestamp moves on. Duplicate and late packets are counted and
// rejected with ErrDuplicatePacket or ErrLatePacket, so a frame is never
// emitted twice and an old fragment never expires the frame in progress.
//
// A stream halts when its payload context reports an unsupported feature or
// a frame past the size ceiling. Later packets for it fail with
// ErrStreamHalted until it is closed with Demuxer.CloseStream.
//
// # Sending
//
// Sender drives pion's Packetizer with vp9.Payloader:
//
//	sender, err := rtp.NewSender(conn, remote, rtp.SenderConfig{Width: 1280, Height: 720})
//	err = sender.SendFrame(frame, time.Second/30)
package rtp
