package interfaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/vp9depack/vp9"
)

// IFrameSink defines the interface for consumers of reassembled VP9 frames.
// This abstraction allows switching between in-memory recording and real
// outputs such as files.
type IFrameSink interface {
	// WriteFrame delivers one complete frame. The sink owns frame afterwards.
	WriteFrame(frame *vp9.Frame) error

	// Close flushes and releases the sink.
	Close() error
}

// SinkConfig holds configuration for frame sink implementations
type SinkConfig struct {
	// UseSimulation selects the in-memory recording sink
	UseSimulation bool

	// Directory is where frames are written, one file per frame. When empty
	// and UseSimulation is false, frames are only logged.
	Directory string

	// MaxFrames bounds the frames a recording sink retains; 0 means unlimited
	MaxFrames int
}

var (
	// ErrInvalidDirectory indicates an unusable output directory
	ErrInvalidDirectory = errors.New("invalid output directory")

	// ErrInvalidMaxFrames indicates a negative frame retention limit
	ErrInvalidMaxFrames = errors.New("invalid max frames")

	// ErrSinkClosed indicates a write to a closed sink
	ErrSinkClosed = errors.New("frame sink closed")
)

// Validate checks the configuration values.
func (c *SinkConfig) Validate() error {
	if c.MaxFrames < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFrames, c.MaxFrames)
	}
	if strings.ContainsRune(c.Directory, 0) {
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidDirectory)
	}
	if c.Directory != "" && strings.TrimSpace(c.Directory) == "" {
		return fmt.Errorf("%w: blank path", ErrInvalidDirectory)
	}
	return nil
}
