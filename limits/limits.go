// Package limits provides centralized size limits for RTP/VP9 depacketization.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MinRTPPacketSize is the fixed RTP header size (RFC 3550 section 5.1).
	// Anything shorter cannot carry a sequence number, timestamp and SSRC.
	MinRTPPacketSize = 12

	// MaxRTPPacketSize is the largest datagram the receiver will accept.
	// This matches the maximum UDP payload over IPv4.
	MaxRTPPacketSize = 65507

	// DefaultReadBufferSize is the receive buffer used by the UDP read loop.
	// Packets larger than this are truncated by the kernel and rejected.
	DefaultReadBufferSize = 2048

	// MaxFrameSize is the default ceiling for a reassembled VP9 frame (8MB).
	// This prevents memory exhaustion when an end-of-frame packet never arrives
	// but the timestamp stays constant.
	MaxFrameSize = 8 * 1024 * 1024

	// MinFrameSize is the smallest configurable frame ceiling.
	MinFrameSize = 1024
)

var (
	// ErrPacketEmpty indicates an empty packet was provided
	ErrPacketEmpty = errors.New("empty packet")

	// ErrPacketTooSmall indicates a packet is shorter than the RTP fixed header
	ErrPacketTooSmall = errors.New("packet too small")

	// ErrPacketTooLarge indicates packet exceeds maximum size
	ErrPacketTooLarge = errors.New("packet too large")

	// ErrFrameTooLarge indicates a frame exceeds the configured ceiling
	ErrFrameTooLarge = errors.New("frame too large")
)

// ValidatePacketSize validates a raw RTP datagram against MinRTPPacketSize and MaxRTPPacketSize.
// Returns an error with context including the actual size and the violated limit.
func ValidatePacketSize(packet []byte) error {
	if len(packet) == 0 {
		return ErrPacketEmpty
	}
	if len(packet) < MinRTPPacketSize {
		return fmt.Errorf("%w: size %d below minimum %d", ErrPacketTooSmall, len(packet), MinRTPPacketSize)
	}
	if len(packet) > MaxRTPPacketSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPacketTooLarge, len(packet), MaxRTPPacketSize)
	}
	return nil
}

// ValidateFrameSize checks that a frame of the given size fits under maxSize.
// A maxSize of zero or less means MaxFrameSize.
func ValidateFrameSize(size, maxSize int) error {
	if maxSize <= 0 {
		maxSize = MaxFrameSize
	}
	if size > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFrameTooLarge, size, maxSize)
	}
	return nil
}

// ValidateFrameCeiling validates a configured frame ceiling.
func ValidateFrameCeiling(maxSize int) error {
	if maxSize < MinFrameSize || maxSize > MaxFrameSize*8 {
		return fmt.Errorf("invalid frame size limit: %d (must be %d-%d)", maxSize, MinFrameSize, MaxFrameSize*8)
	}
	return nil
}
