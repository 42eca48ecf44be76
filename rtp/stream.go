package rtp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/vp9depack/vp9"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// TimeProvider is an interface for getting the current time.
// This allows injecting a mock time provider for deterministic testing.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider implements TimeProvider using the actual system time.
type RealTimeProvider struct{}

// Now returns the current system time.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Stream is the receive state of one SSRC: a VP9 payload context plus
// sequence tracking and statistics.
//
// Once the payload context reports an error that makes the rest of the
// stream undecodable, the stream halts and rejects every later packet with
// ErrStreamHalted.
type Stream struct {
	mu sync.Mutex

	id    uuid.UUID
	ssrc  uint32
	index int

	context *vp9.PayloadContext
	seq     sequenceTracker

	haltErr    error
	closed     bool
	created    time.Time
	lastPacket time.Time
	timeProv   TimeProvider
}

// StreamInfo is a snapshot of a Stream's statistics.
type StreamInfo struct {
	ID    string `json:"id"`
	SSRC  uint32 `json:"ssrc"`
	Index int    `json:"index"`

	Halted     bool   `json:"halted"`
	HaltReason string `json:"halt_reason,omitempty"`
	State      string `json:"state"`

	Packets         uint64 `json:"packets"`
	Rejected        uint64 `json:"rejected"`
	StrayFragments  uint64 `json:"stray_fragments"`
	DiscardedFrames uint64 `json:"discarded_frames"`
	Frames          uint64 `json:"frames"`
	Bytes           uint64 `json:"bytes"`

	HighestSequence uint32 `json:"highest_sequence"`
	Lost            uint64 `json:"lost"`
	Duplicates      uint64 `json:"duplicates"`
	Late            uint64 `json:"late"`

	Created    time.Time `json:"created"`
	LastPacket *time.Time `json:"last_packet,omitempty"`
}

func newStream(ssrc uint32, index, maxFrameSize int, tp TimeProvider) (*Stream, error) {
	ctx := vp9.NewPayloadContext(index)
	if maxFrameSize > 0 {
		if err := ctx.SetMaxFrameSize(maxFrameSize); err != nil {
			return nil, err
		}
	}
	if tp == nil {
		tp = RealTimeProvider{}
	}

	s := &Stream{
		id:       uuid.New(),
		ssrc:     ssrc,
		index:    index,
		context:  ctx,
		created:  tp.Now(),
		timeProv: tp,
	}

	logrus.WithFields(logrus.Fields{
		"function":     "newStream",
		"stream_id":    s.id.String(),
		"ssrc":         ssrc,
		"stream_index": index,
	}).Info("Registered VP9 stream")

	return s, nil
}

// ID returns the session identifier used to correlate this stream's logs.
func (s *Stream) ID() uuid.UUID {
	return s.id
}

// SSRC returns the synchronization source of the stream.
func (s *Stream) SSRC() uint32 {
	return s.ssrc
}

// Index returns the registration-order index frames are tagged with.
func (s *Stream) Index() int {
	return s.index
}

// HandleRTP feeds one packet of this stream to its payload context.
// Duplicate and late packets are rejected with ErrDuplicatePacket and
// ErrLatePacket without reaching the context.
func (s *Stream) HandleRTP(pkt *rtp.Packet) (*vp9.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: stream %d closed", ErrUnknownStream, s.ssrc)
	}
	if s.haltErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamHalted, s.haltErr)
	}

	s.lastPacket = s.timeProv.Now()
	switch s.trackSequence(pkt.SequenceNumber) {
	case seqDuplicate:
		return nil, fmt.Errorf("%w: ssrc %d sequence %d", ErrDuplicatePacket, s.ssrc, pkt.SequenceNumber)
	case seqLate:
		return nil, fmt.Errorf("%w: ssrc %d sequence %d", ErrLatePacket, s.ssrc, pkt.SequenceNumber)
	}

	frame, err := s.context.HandleRTP(pkt)
	if err != nil && vp9.IsStreamFatal(err) {
		s.halt(err)
	}
	return frame, err
}

// trackSequence records seq and classifies it against the highest sequence seen.
func (s *Stream) trackSequence(seq uint16) sequenceEvent {
	event, skipped := s.seq.update(seq)
	fields := logrus.Fields{
		"function":  "Stream.HandleRTP",
		"stream_id": s.id.String(),
		"ssrc":      s.ssrc,
		"sequence":  seq,
	}
	switch event {
	case seqGap:
		fields["skipped"] = skipped
		logrus.WithFields(fields).Warn("Sequence gap detected in RTP stream")
	case seqDuplicate:
		logrus.WithFields(fields).Debug("Duplicate RTP packet")
	case seqLate:
		logrus.WithFields(fields).Debug("Late RTP packet")
	}
	return event
}

func (s *Stream) halt(err error) {
	s.haltErr = err
	s.context.Close()

	logrus.WithFields(logrus.Fields{
		"function":  "Stream.HandleRTP",
		"stream_id": s.id.String(),
		"ssrc":      s.ssrc,
		"error":     err.Error(),
	}).Error("Halting VP9 stream")
}

// Halted returns the error that halted the stream, or nil.
func (s *Stream) Halted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haltErr
}

// Close drops any partial frame. Later packets are rejected.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.context.Close()

	logrus.WithFields(logrus.Fields{
		"function":  "Stream.Close",
		"stream_id": s.id.String(),
		"ssrc":      s.ssrc,
	}).Info("Closed VP9 stream")
}

// Info returns a snapshot of the stream statistics.
func (s *Stream) Info() StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.context.Stats()
	info := StreamInfo{
		ID:              s.id.String(),
		SSRC:            s.ssrc,
		Index:           s.index,
		Halted:          s.haltErr != nil,
		State:           s.context.State().String(),
		Packets:         stats.Packets,
		Rejected:        stats.Rejected,
		StrayFragments:  stats.StrayFragments,
		DiscardedFrames: stats.DiscardedFrames,
		Frames:          stats.Frames,
		Bytes:           stats.Bytes,
		HighestSequence: s.seq.extendedMax(),
		Lost:            s.seq.lost,
		Duplicates:      s.seq.duplicates,
		Late:            s.seq.late,
		Created:         s.created,
	}
	if !s.lastPacket.IsZero() {
		last := s.lastPacket
		info.LastPacket = &last
	}
	if s.haltErr != nil {
		info.HaltReason = s.haltErr.Error()
	}
	return info
}

// isHalted reports whether err came from a halted stream.
func isHalted(err error) bool {
	return errors.Is(err, ErrStreamHalted)
}
