package rtp

import (
	"fmt"

	"github.com/opd-ai/vp9depack/limits"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// rtpVersion is the only RTP version defined by RFC 3550.
const rtpVersion = 2

// ParsePacket validates a raw datagram and parses it as an RTP packet.
//
// The returned packet's payload aliases raw.
func ParsePacket(raw []byte) (*rtp.Packet, error) {
	if err := limits.ValidatePacketSize(raw); err != nil {
		return nil, err
	}

	packet := &rtp.Packet{}
	if err := packet.Unmarshal(raw); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ParsePacket",
			"size":     len(raw),
			"error":    err.Error(),
		}).Debug("Failed to unmarshal RTP packet")
		return nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}

	if packet.Version != rtpVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, packet.Version)
	}
	return packet, nil
}
