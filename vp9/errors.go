package vp9

import (
	"errors"

	"github.com/opd-ai/vp9depack/limits"
)

// Sentinel errors for VP9 depacketization.
// These errors enable reliable error classification using errors.Is().

// Packet-level errors. The offending packet is dropped and the stream continues.
var (
	// ErrTooShort indicates the payload ended before the descriptor or one of
	// its declared sub-fields was complete.
	ErrTooShort = errors.New("too short RTP/VP9 packet")

	// ErrInvalidData indicates a structurally forbidden value, such as a zero
	// reference difference or an end-of-frame bit that disagrees with the
	// RTP marker.
	ErrInvalidData = errors.New("invalid RTP/VP9 data")
)

// Stream-level errors. The caller should stop feeding the stream.
var (
	// ErrUnsupportedFeature indicates a recognized structure this package does
	// not implement, such as a scalability structure with several spatial layers.
	ErrUnsupportedFeature = errors.New("unsupported RTP/VP9 feature")

	// ErrFrameTooLarge indicates a frame grew past the configured ceiling.
	ErrFrameTooLarge = limits.ErrFrameTooLarge
)

// Encoder errors.
var (
	// ErrInvalidDescriptor indicates a Descriptor that cannot be serialized.
	ErrInvalidDescriptor = errors.New("invalid VP9 payload descriptor")
)

// IsStreamFatal reports whether err should halt the stream that produced it.
// ErrTooShort and ErrInvalidData only cost the current packet.
func IsStreamFatal(err error) bool {
	return errors.Is(err, ErrUnsupportedFeature) || errors.Is(err, ErrFrameTooLarge)
}
