package testing

import (
	"sync"

	"github.com/opd-ai/vp9depack/interfaces"
	"github.com/opd-ai/vp9depack/vp9"
	"github.com/sirupsen/logrus"
)

// RecordingSink implements interfaces.IFrameSink by keeping frames in memory
// for later inspection.
type RecordingSink struct {
	mu        sync.Mutex
	frames    []*vp9.Frame
	maxFrames int
	evicted   int
	writeErr  error
	closed    bool
	notify    chan struct{}
}

// NewRecordingSink creates a recording sink. The config's MaxFrames bounds
// the frames kept; older frames are evicted first. A nil config keeps all.
func NewRecordingSink(config *interfaces.SinkConfig) *RecordingSink {
	maxFrames := 0
	if config != nil {
		maxFrames = config.MaxFrames
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewRecordingSink",
		"max_frames": maxFrames,
	}).Debug("Creating recording frame sink")

	return &RecordingSink{
		maxFrames: maxFrames,
		notify:    make(chan struct{}, 1),
	}
}

// WriteFrame implements IFrameSink.WriteFrame
func (s *RecordingSink) WriteFrame(frame *vp9.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return interfaces.ErrSinkClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}

	s.frames = append(s.frames, frame)
	if s.maxFrames > 0 && len(s.frames) > s.maxFrames {
		drop := len(s.frames) - s.maxFrames
		s.frames = append([]*vp9.Frame(nil), s.frames[drop:]...)
		s.evicted += drop
	}

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// SetWriteError makes later writes fail with err. A nil err clears it.
func (s *RecordingSink) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Frames returns the recorded frames in write order.
func (s *RecordingSink) Frames() []*vp9.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*vp9.Frame(nil), s.frames...)
}

// StreamFrames returns the recorded frames of one stream.
func (s *RecordingSink) StreamFrames(streamIndex int) []*vp9.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*vp9.Frame
	for _, f := range s.frames {
		if f.StreamIndex == streamIndex {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of frames currently held.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Evicted returns the number of frames dropped by the MaxFrames bound.
func (s *RecordingSink) Evicted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// Written returns a channel that receives a value after frames are written.
// Several writes may be coalesced into one notification.
func (s *RecordingSink) Written() <-chan struct{} {
	return s.notify
}

// Closed reports whether Close was called.
func (s *RecordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements IFrameSink.Close
func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
