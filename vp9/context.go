package vp9

import (
	"fmt"

	"github.com/opd-ai/vp9depack/limits"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// ClockRate is the RTP clock rate of VP9 video.
const ClockRate = 90000

// State is the frame assembly state of a PayloadContext.
type State int

const (
	// StateEmpty means no frame is in progress.
	StateEmpty State = iota
	// StateAccumulating means fragments of one frame are being collected.
	StateAccumulating
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Frame is a reassembled VP9 frame.
type Frame struct {
	// Data is the concatenation of every fragment's codec bytes in arrival order.
	Data []byte
	// Timestamp is the RTP timestamp of the packet that started the frame.
	Timestamp uint32
	// StreamIndex identifies the stream the frame belongs to.
	StreamIndex int

	// KeyFrame is true when the first fragment was not inter-picture predicted.
	KeyFrame     bool
	PictureID    uint16
	HasPictureID bool
	// Width and Height come from a scalability structure on the first
	// fragment; both are zero when none was sent.
	Width  uint16
	Height uint16
	// Fragments is the number of packets the frame was assembled from.
	Fragments int
}

// Stats counts what a PayloadContext did with the packets it was given.
type Stats struct {
	Packets         uint64 // packets handed to HandlePacket
	Rejected        uint64 // packets rejected with an error
	StrayFragments  uint64 // continuation fragments with no frame in progress
	DiscardedFrames uint64 // partial frames dropped on a timestamp change or Close
	Frames          uint64 // frames emitted
	Bytes           uint64 // codec bytes emitted
}

// PayloadContext is the per-stream depacketization state.
//
// It holds at most one partial frame. A PayloadContext is not safe for
// concurrent use; the caller must serialize calls for a given stream.
type PayloadContext struct {
	streamIndex int
	assembler   fragmentAssembler

	state     State
	timestamp uint32
	first     *Descriptor

	stats Stats
}

// NewPayloadContext creates an empty context for the stream at streamIndex.
func NewPayloadContext(streamIndex int) *PayloadContext {
	logrus.WithFields(logrus.Fields{
		"function":     "NewPayloadContext",
		"stream_index": streamIndex,
	}).Debug("Creating VP9 payload context")

	return &PayloadContext{
		streamIndex: streamIndex,
		assembler:   newFragmentAssembler(limits.MaxFrameSize),
		state:       StateEmpty,
	}
}

// SetMaxFrameSize configures the ceiling for a reassembled frame.
func (c *PayloadContext) SetMaxFrameSize(size int) error {
	if err := limits.ValidateFrameCeiling(size); err != nil {
		return err
	}
	c.assembler.maxSize = size
	return nil
}

// StreamIndex returns the index frames from this context are tagged with.
func (c *PayloadContext) StreamIndex() int {
	return c.streamIndex
}

// State returns the current assembly state.
func (c *PayloadContext) State() State {
	return c.state
}

// PendingTimestamp returns the timestamp of the frame in progress, if any.
func (c *PayloadContext) PendingTimestamp() (uint32, bool) {
	return c.timestamp, c.state == StateAccumulating
}

// PendingSize returns the number of bytes accumulated for the frame in progress.
func (c *PayloadContext) PendingSize() int {
	return c.assembler.size()
}

// Stats returns a copy of the context counters.
func (c *PayloadContext) Stats() Stats {
	return c.stats
}

// HandleRTP feeds a parsed RTP packet to the context.
func (c *PayloadContext) HandleRTP(pkt *rtp.Packet) (*Frame, error) {
	if pkt == nil {
		return nil, fmt.Errorf("%w: nil packet", ErrTooShort)
	}
	return c.HandlePacket(pkt.Payload, pkt.Timestamp, pkt.Marker)
}

// HandlePacket feeds one RTP payload to the context.
//
// It returns a Frame when the packet completes one. A nil Frame with a nil
// error means more packets are needed. Errors wrap ErrTooShort or
// ErrInvalidData (drop the packet and continue), or ErrUnsupportedFeature and
// ErrFrameTooLarge (stop feeding this stream).
//
// The payload is not retained; its codec bytes are copied.
func (c *PayloadContext) HandlePacket(payload []byte, timestamp uint32, marker bool) (*Frame, error) {
	c.stats.Packets++

	d, n, err := DecodeDescriptor(payload)
	if err != nil {
		// The RTP timestamp is valid even when the payload is not.
		c.expireStale(timestamp)
		return nil, c.reject(err, timestamp)
	}

	if d.EndOfFrame != marker {
		return nil, c.reject(fmt.Errorf("%w: end of frame %t does not match marker %t", ErrInvalidData, d.EndOfFrame, marker), timestamp)
	}

	c.expireStale(timestamp)

	if c.state == StateEmpty {
		if !d.StartOfFrame {
			c.stats.StrayFragments++
			logrus.WithFields(logrus.Fields{
				"function":     "PayloadContext.HandlePacket",
				"stream_index": c.streamIndex,
				"timestamp":    timestamp,
			}).Debug("Continuation fragment without frame start, waiting for next frame")
			return nil, nil
		}
		c.startFrame(timestamp, d)
	}

	if err := c.assembler.append(payload[n:]); err != nil {
		c.discard("frame ceiling exceeded")
		return nil, c.reject(fmt.Errorf("stream %d: %w", c.streamIndex, err), timestamp)
	}

	if !d.EndOfFrame {
		return nil, nil
	}
	return c.finalize(), nil
}

// Close drops any partial frame. The context can still be used afterwards;
// it behaves like a fresh one.
func (c *PayloadContext) Close() {
	if c.state == StateAccumulating {
		c.discard("stream closed")
	}
}

func (c *PayloadContext) startFrame(timestamp uint32, d *Descriptor) {
	c.state = StateAccumulating
	c.timestamp = timestamp
	c.first = d
	c.assembler.begin()
}

// expireStale drops the frame in progress when timestamp belongs to a
// different frame; its remaining fragments were lost.
func (c *PayloadContext) expireStale(timestamp uint32) {
	if c.state != StateAccumulating || c.timestamp == timestamp {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function":      "PayloadContext.HandlePacket",
		"stream_index":  c.streamIndex,
		"old_timestamp": c.timestamp,
		"new_timestamp": timestamp,
		"dropped_bytes": c.assembler.size(),
	}).Warn("Dropping incomplete frame after timestamp change")
	c.discard("timestamp changed")
}

func (c *PayloadContext) discard(reason string) {
	logrus.WithFields(logrus.Fields{
		"function":     "PayloadContext.discard",
		"stream_index": c.streamIndex,
		"timestamp":    c.timestamp,
		"reason":       reason,
	}).Debug("Discarding partial frame")

	c.assembler.reset()
	c.state = StateEmpty
	c.first = nil
	c.stats.DiscardedFrames++
}

func (c *PayloadContext) finalize() *Frame {
	data, fragments := c.assembler.take()
	f := &Frame{
		Data:        data,
		Timestamp:   c.timestamp,
		StreamIndex: c.streamIndex,
		Fragments:   fragments,
	}
	if d := c.first; d != nil {
		f.KeyFrame = d.KeyFrame()
		f.HasPictureID = d.HasPictureID
		f.PictureID = d.PictureID
		if ss := d.Scalability; ss != nil && len(ss.Resolutions) > 0 {
			f.Width = ss.Resolutions[0].Width
			f.Height = ss.Resolutions[0].Height
		}
	}

	c.state = StateEmpty
	c.first = nil
	c.stats.Frames++
	c.stats.Bytes += uint64(len(data))

	logrus.WithFields(logrus.Fields{
		"function":     "PayloadContext.finalize",
		"stream_index": c.streamIndex,
		"timestamp":    f.Timestamp,
		"size":         len(data),
		"fragments":    fragments,
		"key_frame":    f.KeyFrame,
	}).Debug("VP9 frame complete")

	return f
}

func (c *PayloadContext) reject(err error, timestamp uint32) error {
	c.stats.Rejected++
	logrus.WithFields(logrus.Fields{
		"function":     "PayloadContext.HandlePacket",
		"stream_index": c.streamIndex,
		"timestamp":    timestamp,
		"error":        err.Error(),
	}).Debug("Rejected RTP/VP9 packet")
	return err
}
