// Package vp9 reassembles VP9 video frames from RTP payloads.
//
// Each RTP payload starts with a VP9 payload descriptor (RFC 9628): a flag
// octet followed by optional picture ID, layer indices, reference differences
// and a scalability structure. DecodeDescriptor parses it without modifying
// the payload. The bytes after the descriptor are a fragment of one frame.
//
// # Depacketization
//
// A PayloadContext holds the state of one stream. Packets are fed in arrival
// order with their RTP timestamp and marker bit:
//
//	ctx := vp9.NewPayloadContext(streamIndex)
//	frame, err := ctx.HandlePacket(pkt.Payload, pkt.Timestamp, pkt.Marker)
//	switch {
//	case vp9.IsStreamFatal(err):
//	    // stop feeding this stream
//	case err != nil:
//	    // packet dropped, keep going
//	case frame == nil:
//	    // more packets needed
//	default:
//	    // frame.Data holds a complete VP9 frame
//	}
//
// Fragments are concatenated in arrival order. A frame starts with a packet
// whose B bit is set and ends with a packet whose E bit is set; the E bit
// must agree with the RTP marker. A timestamp change while a frame is in
// progress drops the partial frame. Continuation fragments that arrive with
// no frame in progress are ignored. Packets are not reordered.
//
// # Errors
//
// ErrTooShort and ErrInvalidData reject a single packet. ErrUnsupportedFeature
// (scalability structures with more than one spatial layer) and
// ErrFrameTooLarge (a frame past the configured ceiling) mean the stream
// cannot be decoded further.
//
// # Packetization
//
// Payloader is the sending side: it fragments VP9 frames into payloads with a
// 15-bit picture ID and can drive github.com/pion/rtp's Packetizer.
// Descriptor.Marshal encodes descriptors in the layout DecodeDescriptor reads.
package vp9
