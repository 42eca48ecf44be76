package real

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/opd-ai/vp9depack/interfaces"
	"github.com/opd-ai/vp9depack/vp9"
	"github.com/sirupsen/logrus"
)

// SinkStats is a snapshot of what a sink has written.
type SinkStats struct {
	Frames    uint64
	Bytes     uint64
	KeyFrames uint64
	Streams   int
}

// DirectorySink writes every frame to its own file:
//
//	<dir>/stream-<index>/<n>-<timestamp>.vp9
//
// where n counts the frames of that stream from zero.
type DirectorySink struct {
	mu      sync.Mutex
	dir     string
	counts  map[int]uint64
	stats   SinkStats
	closed  bool
	perm    os.FileMode
	dirPerm os.FileMode
}

// NewDirectorySink creates dir if needed and returns a sink writing into it.
func NewDirectorySink(dir string) (*DirectorySink, error) {
	logrus.WithFields(logrus.Fields{
		"function":  "NewDirectorySink",
		"directory": dir,
	}).Info("Creating directory frame sink")

	if dir == "" {
		return nil, fmt.Errorf("%w: empty path", interfaces.ErrInvalidDirectory)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "NewDirectorySink",
			"directory": dir,
			"error":     err.Error(),
		}).Error("Failed to create output directory")
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &DirectorySink{
		dir:     dir,
		counts:  make(map[int]uint64),
		perm:    0o644,
		dirPerm: 0o755,
	}, nil
}

// WriteFrame implements IFrameSink.WriteFrame
func (s *DirectorySink) WriteFrame(frame *vp9.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return interfaces.ErrSinkClosed
	}

	path, err := s.framePath(frame)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, frame.Data, s.perm); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DirectorySink.WriteFrame",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to write frame")
		return fmt.Errorf("failed to write frame: %w", err)
	}

	s.counts[frame.StreamIndex]++
	s.stats.Frames++
	s.stats.Bytes += uint64(len(frame.Data))
	if frame.KeyFrame {
		s.stats.KeyFrames++
	}

	logrus.WithFields(logrus.Fields{
		"function": "DirectorySink.WriteFrame",
		"path":     path,
		"size":     len(frame.Data),
	}).Debug("Frame written")
	return nil
}

// framePath returns the file for the next frame of its stream, creating the
// stream directory on first use.
func (s *DirectorySink) framePath(frame *vp9.Frame) (string, error) {
	streamDir := filepath.Join(s.dir, fmt.Sprintf("stream-%d", frame.StreamIndex))
	n, seen := s.counts[frame.StreamIndex]
	if !seen {
		if err := os.MkdirAll(streamDir, s.dirPerm); err != nil {
			return "", fmt.Errorf("failed to create stream directory: %w", err)
		}
	}
	return filepath.Join(streamDir, fmt.Sprintf("%d-%d.vp9", n, frame.Timestamp)), nil
}

// Stats returns a snapshot of the sink counters.
func (s *DirectorySink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Streams = len(s.counts)
	return stats
}

// Close implements IFrameSink.Close
func (s *DirectorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	logrus.WithFields(logrus.Fields{
		"function": "DirectorySink.Close",
		"frames":   s.stats.Frames,
		"bytes":    s.stats.Bytes,
		"streams":  len(s.counts),
	}).Info("Closed directory frame sink")
	return nil
}
