package rtp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/vp9depack/vp9"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// SenderConfig configures a Sender.
type SenderConfig struct {
	// MTU is the largest RTP packet, header included.
	MTU uint16
	// PayloadType is the dynamic payload type advertised for VP9.
	PayloadType uint8
	// SSRC identifies the stream. Zero picks a random one.
	SSRC uint32
	// Width and Height are advertised on key frames when both are set.
	Width  uint16
	Height uint16
	// InitialPictureID is the picture ID of the first frame.
	InitialPictureID uint16
}

// DefaultMTU leaves room for IP and UDP headers on a 1500 byte link.
const DefaultMTU = 1200

// DefaultPayloadType is the dynamic payload type used when none is given.
const DefaultPayloadType = 96

// Sender packetizes VP9 frames and writes them to a remote address.
type Sender struct {
	mu         sync.Mutex
	conn       net.PacketConn
	remoteAddr net.Addr
	packetizer rtp.Packetizer
	payloader  *vp9.Payloader
	ssrc       uint32
	clock      mediaClock
	packets    uint64
	frames     uint64
}

// mediaClock converts frame durations to RTP ticks. Each duration is rounded
// to the nearest tick and the rounding error is carried into the next one,
// so the sum of the returned ticks always equals the rounded total duration.
type mediaClock struct {
	carry time.Duration // scaled by ClockRate
}

func (c *mediaClock) ticks(d time.Duration) uint32 {
	total := d*vp9.ClockRate + c.carry
	n := (total + time.Second/2) / time.Second
	c.carry = total - n*time.Second
	return uint32(n)
}

// NewSender creates a sender writing to remoteAddr over conn.
func NewSender(conn net.PacketConn, remoteAddr net.Addr, config SenderConfig) (*Sender, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection cannot be nil")
	}
	if remoteAddr == nil {
		return nil, fmt.Errorf("remote address cannot be nil")
	}
	if config.MTU == 0 {
		config.MTU = DefaultMTU
	}
	if config.PayloadType == 0 {
		config.PayloadType = DefaultPayloadType
	}
	if config.PayloadType > 127 {
		return nil, fmt.Errorf("invalid payload type: %d (must be 0-127)", config.PayloadType)
	}

	if config.SSRC == 0 {
		ssrcBytes := make([]byte, 4)
		if _, err := rand.Read(ssrcBytes); err != nil {
			return nil, fmt.Errorf("failed to generate SSRC: %w", err)
		}
		config.SSRC = binary.BigEndian.Uint32(ssrcBytes)
	}

	payloader := vp9.NewPayloader(config.InitialPictureID)
	payloader.Width, payloader.Height = config.Width, config.Height

	logrus.WithFields(logrus.Fields{
		"function":     "NewSender",
		"ssrc":         config.SSRC,
		"payload_type": config.PayloadType,
		"mtu":          config.MTU,
		"remote_addr":  remoteAddr.String(),
	}).Info("Creating VP9 RTP sender")

	return &Sender{
		conn:       conn,
		remoteAddr: remoteAddr,
		packetizer: rtp.NewPacketizer(config.MTU, config.PayloadType, config.SSRC, payloader, rtp.NewRandomSequencer(), vp9.ClockRate),
		payloader:  payloader,
		ssrc:       config.SSRC,
	}, nil
}

// SSRC returns the synchronization source of the sent stream.
func (s *Sender) SSRC() uint32 {
	return s.ssrc
}

// SendFrame packetizes one VP9 frame and sends its packets. duration is the
// display time of the frame and advances the RTP timestamp of the next one.
func (s *Sender) SendFrame(frame []byte, duration time.Duration) error {
	if len(frame) == 0 {
		return fmt.Errorf("frame cannot be empty")
	}
	if duration < 0 {
		return fmt.Errorf("invalid frame duration: %v", duration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clock := s.clock
	samples := s.clock.ticks(duration)
	packets := s.packetizer.Packetize(frame, samples)
	if len(packets) == 0 {
		s.clock = clock
		return fmt.Errorf("frame of %d bytes produced no packets", len(frame))
	}

	for _, pkt := range packets {
		raw, err := pkt.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal RTP packet: %w", err)
		}
		if _, err := s.conn.WriteTo(raw, s.remoteAddr); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Sender.SendFrame",
				"sequence": pkt.SequenceNumber,
				"error":    err.Error(),
			}).Error("Failed to send RTP packet")
			return fmt.Errorf("failed to send RTP packet: %w", err)
		}
		s.packets++
	}
	s.frames++

	logrus.WithFields(logrus.Fields{
		"function":  "Sender.SendFrame",
		"ssrc":      s.ssrc,
		"size":      len(frame),
		"packets":   len(packets),
		"timestamp": packets[0].Timestamp,
	}).Debug("VP9 frame sent")
	return nil
}

// Stats returns the number of packets and frames sent.
func (s *Sender) Stats() (packets, frames uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets, s.frames
}
