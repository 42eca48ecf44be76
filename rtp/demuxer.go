package rtp

import (
	"fmt"
	"sort"
	"sync"

	"github.com/opd-ai/vp9depack/limits"
	"github.com/opd-ai/vp9depack/vp9"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Config configures a Demuxer.
type Config struct {
	// PayloadType is the RTP payload type carrying VP9. Zero accepts every
	// payload type.
	PayloadType uint8

	// AutoRegister creates a stream for every unknown SSRC. When false only
	// streams registered with InitStream are accepted.
	AutoRegister bool

	// MaxStreams caps the number of concurrent streams.
	MaxStreams int

	// MaxFrameSize is the per-stream frame ceiling. Zero means
	// limits.MaxFrameSize.
	MaxFrameSize int

	// TimeProvider stamps stream activity. Nil means RealTimeProvider.
	TimeProvider TimeProvider
}

// DefaultMaxStreams is the stream cap used by DefaultConfig.
const DefaultMaxStreams = 64

// DefaultConfig returns a Config that accepts any payload type and registers
// streams on first sight.
func DefaultConfig() *Config {
	return &Config{
		AutoRegister: true,
		MaxStreams:   DefaultMaxStreams,
		MaxFrameSize: limits.MaxFrameSize,
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.PayloadType > 127 {
		return fmt.Errorf("invalid payload type: %d (must be 0-127)", c.PayloadType)
	}
	if c.MaxStreams <= 0 {
		return fmt.Errorf("invalid max streams: %d (must be positive)", c.MaxStreams)
	}
	if c.MaxFrameSize != 0 {
		if err := limits.ValidateFrameCeiling(c.MaxFrameSize); err != nil {
			return err
		}
	}
	return nil
}

// Demuxer routes RTP packets to per-SSRC streams and reassembles VP9 frames.
//
// Packets of different streams may be handled concurrently. Packets of one
// stream are serialized by the stream.
type Demuxer struct {
	mu        sync.RWMutex
	config    Config
	streams   map[uint32]*Stream
	nextIndex int
	closed    bool
}

// NewDemuxer creates a demuxer. A nil config means DefaultConfig.
func NewDemuxer(config *Config) (*Demuxer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewDemuxer",
			"error":    err.Error(),
		}).Error("Invalid demuxer configuration")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewDemuxer",
		"payload_type":  config.PayloadType,
		"auto_register": config.AutoRegister,
		"max_streams":   config.MaxStreams,
	}).Info("Creating VP9 demuxer")

	return &Demuxer{
		config:  *config,
		streams: make(map[uint32]*Stream),
	}, nil
}

// InitStream registers a stream for ssrc. Streams are indexed in
// registration order starting at zero.
func (d *Demuxer) InitStream(ssrc uint32) (*Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initStreamLocked(ssrc)
}

func (d *Demuxer) initStreamLocked(ssrc uint32) (*Stream, error) {
	if d.closed {
		return nil, ErrDemuxerClosed
	}
	if _, exists := d.streams[ssrc]; exists {
		return nil, fmt.Errorf("%w: ssrc %d", ErrStreamExists, ssrc)
	}
	if len(d.streams) >= d.config.MaxStreams {
		logrus.WithFields(logrus.Fields{
			"function":    "Demuxer.InitStream",
			"ssrc":        ssrc,
			"max_streams": d.config.MaxStreams,
		}).Warn("Stream limit reached")
		return nil, fmt.Errorf("%w: limit %d", ErrTooManyStreams, d.config.MaxStreams)
	}

	s, err := newStream(ssrc, d.nextIndex, d.config.MaxFrameSize, d.config.TimeProvider)
	if err != nil {
		return nil, err
	}
	d.streams[ssrc] = s
	d.nextIndex++
	return s, nil
}

// HandlePacket parses a raw datagram and feeds it to its stream.
//
// A nil frame with a nil error means the stream needs more packets.
func (d *Demuxer) HandlePacket(raw []byte) (*vp9.Frame, error) {
	pkt, err := ParsePacket(raw)
	if err != nil {
		return nil, err
	}
	return d.HandleRTP(pkt)
}

// HandleRTP feeds a parsed packet to its stream, registering the stream
// first when AutoRegister is set.
func (d *Demuxer) HandleRTP(pkt *rtp.Packet) (*vp9.Frame, error) {
	if pkt == nil {
		return nil, fmt.Errorf("%w: nil packet", vp9.ErrTooShort)
	}
	if d.config.PayloadType != 0 && pkt.PayloadType != d.config.PayloadType {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPayloadTypeMismatch, pkt.PayloadType, d.config.PayloadType)
	}

	s, err := d.lookup(pkt.SSRC)
	if err != nil {
		return nil, err
	}
	return s.HandleRTP(pkt)
}

func (d *Demuxer) lookup(ssrc uint32) (*Stream, error) {
	d.mu.RLock()
	s, ok := d.streams[ssrc]
	closed := d.closed
	d.mu.RUnlock()

	switch {
	case closed:
		return nil, ErrDemuxerClosed
	case ok:
		return s, nil
	case !d.config.AutoRegister:
		return nil, fmt.Errorf("%w: ssrc %d", ErrUnknownStream, ssrc)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// another goroutine may have registered it meanwhile
	if s, ok := d.streams[ssrc]; ok {
		return s, nil
	}
	return d.initStreamLocked(ssrc)
}

// CloseStream drops the stream for ssrc along with any partial frame.
// A later packet with the same SSRC starts a new stream with a new index.
func (d *Demuxer) CloseStream(ssrc uint32) error {
	d.mu.Lock()
	s, ok := d.streams[ssrc]
	delete(d.streams, ssrc)
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: ssrc %d", ErrUnknownStream, ssrc)
	}
	s.Close()
	return nil
}

// Close closes every stream. The demuxer rejects packets afterwards.
func (d *Demuxer) Close() error {
	d.mu.Lock()
	streams := d.streams
	d.streams = make(map[uint32]*Stream)
	d.closed = true
	d.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Demuxer.Close",
		"streams":  len(streams),
	}).Info("Closed VP9 demuxer")
	return nil
}

// Stream returns a snapshot of the stream for ssrc.
func (d *Demuxer) Stream(ssrc uint32) (StreamInfo, bool) {
	d.mu.RLock()
	s, ok := d.streams[ssrc]
	d.mu.RUnlock()

	if !ok {
		return StreamInfo{}, false
	}
	return s.Info(), true
}

// Streams returns snapshots of every stream ordered by index.
func (d *Demuxer) Streams() []StreamInfo {
	d.mu.RLock()
	streams := make([]*Stream, 0, len(d.streams))
	for _, s := range d.streams {
		streams = append(streams, s)
	}
	d.mu.RUnlock()

	infos := make([]StreamInfo, 0, len(streams))
	for _, s := range streams {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Index < infos[j].Index })
	return infos
}
