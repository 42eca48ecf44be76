package real

import (
	"sync"

	"github.com/opd-ai/vp9depack/interfaces"
	"github.com/opd-ai/vp9depack/vp9"
	"github.com/sirupsen/logrus"
)

// LogSink logs frame metadata and discards the data.
type LogSink struct {
	mu      sync.Mutex
	logger  logrus.FieldLogger
	stats   SinkStats
	streams map[int]struct{}
	closed  bool
}

// NewLogSink creates a sink logging through logger. A nil logger means the
// standard logrus logger.
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSink{
		logger:  logger,
		streams: make(map[int]struct{}),
	}
}

// WriteFrame implements IFrameSink.WriteFrame
func (s *LogSink) WriteFrame(frame *vp9.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return interfaces.ErrSinkClosed
	}

	s.streams[frame.StreamIndex] = struct{}{}
	s.stats.Frames++
	s.stats.Bytes += uint64(len(frame.Data))
	if frame.KeyFrame {
		s.stats.KeyFrames++
	}

	fields := logrus.Fields{
		"function":     "LogSink.WriteFrame",
		"stream_index": frame.StreamIndex,
		"timestamp":    frame.Timestamp,
		"size":         len(frame.Data),
		"fragments":    frame.Fragments,
		"key_frame":    frame.KeyFrame,
	}
	if frame.HasPictureID {
		fields["picture_id"] = frame.PictureID
	}
	if frame.Width > 0 {
		fields["width"] = frame.Width
		fields["height"] = frame.Height
	}
	s.logger.WithFields(fields).Info("VP9 frame")
	return nil
}

// Stats returns a snapshot of the sink counters.
func (s *LogSink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Streams = len(s.streams)
	return stats
}

// Close implements IFrameSink.Close
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
