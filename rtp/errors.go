package rtp

import "errors"

// Sentinel errors for rtp package operations.
// These errors enable reliable error classification using errors.Is().

// Packet errors.
var (
	// ErrInvalidVersion indicates a packet whose RTP version is not 2.
	ErrInvalidVersion = errors.New("invalid RTP version")

	// ErrPayloadTypeMismatch indicates a packet for a payload type this
	// demuxer does not handle.
	ErrPayloadTypeMismatch = errors.New("unexpected RTP payload type")

	// ErrDuplicatePacket indicates a packet whose sequence number equals the
	// highest one already received on its stream.
	ErrDuplicatePacket = errors.New("duplicate RTP packet")

	// ErrLatePacket indicates a packet whose sequence number is behind the
	// highest one already received on its stream.
	ErrLatePacket = errors.New("late RTP packet")
)

// Stream registry errors.
var (
	// ErrUnknownStream indicates a packet or request for an SSRC that was
	// never registered.
	ErrUnknownStream = errors.New("unknown RTP stream")

	// ErrStreamExists indicates InitStream was called twice for one SSRC.
	ErrStreamExists = errors.New("RTP stream already registered")

	// ErrTooManyStreams indicates the MaxStreams limit was reached.
	ErrTooManyStreams = errors.New("too many RTP streams")

	// ErrStreamHalted indicates the stream hit an unrecoverable error and
	// no longer accepts packets.
	ErrStreamHalted = errors.New("RTP stream halted")

	// ErrDemuxerClosed indicates the demuxer was closed.
	ErrDemuxerClosed = errors.New("demuxer closed")
)
