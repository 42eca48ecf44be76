// Package limits provides centralized size constants and validation functions
// for the depacketization pipeline. This package ensures consistent size
// enforcement across the RTP demuxer and the VP9 frame assembler.
//
// # Size Hierarchy
//
//   - MinRTPPacketSize (12 bytes): the RTP fixed header. Shorter datagrams are
//     rejected before any parsing.
//
//   - MaxRTPPacketSize (65507 bytes): the largest UDP payload over IPv4.
//
//   - DefaultReadBufferSize (2048 bytes): the receive buffer of the UDP loop.
//     Typical RTP video packets stay below a 1500 byte MTU.
//
//   - MaxFrameSize (8MB): the default ceiling for one reassembled frame. Exceeding
//     it is the resource-error category of the depacketizer and halts the stream.
//
// # Validation Functions
//
//	if err := limits.ValidatePacketSize(datagram); err != nil {
//	    // ErrPacketEmpty, ErrPacketTooSmall or ErrPacketTooLarge
//	}
//
//	if err := limits.ValidateFrameSize(pending+len(fragment), ceiling); err != nil {
//	    // ErrFrameTooLarge
//	}
//
// # Security Considerations
//
// Payload sizes and timestamps are controlled by the sender. A sender that keeps
// the timestamp constant and never sets the end-of-frame bit would otherwise grow
// the assembly buffer without bound; the frame ceiling closes that hole.
package limits
