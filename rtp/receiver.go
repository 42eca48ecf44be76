package rtp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/opd-ai/vp9depack/interfaces"
	"github.com/opd-ai/vp9depack/limits"
	"github.com/opd-ai/vp9depack/vp9"
	"github.com/sirupsen/logrus"
)

// DefaultReadTimeout bounds each read so cancellation is noticed promptly.
const DefaultReadTimeout = 100 * time.Millisecond

// ReceiverOptions configures a Receiver. The zero value is usable.
type ReceiverOptions struct {
	// ReadTimeout is the deadline set before each read.
	ReadTimeout time.Duration
	// BufferSize is the receive buffer; larger datagrams are rejected.
	BufferSize int
}

// Receiver reads RTP datagrams from a packet connection, feeds them to a
// Demuxer and writes complete frames to a sink.
type Receiver struct {
	conn    net.PacketConn
	demuxer *Demuxer
	sink    interfaces.IFrameSink
	opts    ReceiverOptions
}

// NewReceiver creates a receiver. A nil opts means the defaults.
func NewReceiver(conn net.PacketConn, demuxer *Demuxer, sink interfaces.IFrameSink, opts *ReceiverOptions) *Receiver {
	o := ReceiverOptions{}
	if opts != nil {
		o = *opts
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.BufferSize <= 0 {
		o.BufferSize = limits.DefaultReadBufferSize
	}

	return &Receiver{
		conn:    conn,
		demuxer: demuxer,
		sink:    sink,
		opts:    o,
	}
}

// Run reads packets until ctx is done or the connection fails. It returns
// nil on cancellation and the error otherwise. A sink error stops the loop.
func (r *Receiver) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function":   "Receiver.Run",
		"local_addr": r.conn.LocalAddr().String(),
	}).Info("Starting RTP receiver")

	// one extra byte detects datagrams larger than the buffer
	buffer := make([]byte, r.opts.BufferSize+1)

	for {
		select {
		case <-ctx.Done():
			return r.stop(ctx)
		default:
		}

		data, addr, err := r.readPacketData(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return r.stop(ctx)
			}
			logrus.WithFields(logrus.Fields{
				"function": "Receiver.Run",
				"error":    err.Error(),
			}).Error("RTP read failed")
			return fmt.Errorf("failed to read RTP packet: %w", err)
		}

		if err := r.processPacket(data, addr); err != nil {
			return err
		}
	}
}

func (r *Receiver) stop(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "Receiver.Run",
		"reason":   context.Cause(ctx).Error(),
	}).Info("Stopping RTP receiver")
	return nil
}

// readPacketData reads data from the connection with timeout handling.
func (r *Receiver) readPacketData(buffer []byte) ([]byte, net.Addr, error) {
	_ = r.conn.SetReadDeadline(time.Now().Add(r.opts.ReadTimeout))

	n, addr, err := r.conn.ReadFrom(buffer)
	if err != nil {
		return nil, nil, err
	}
	return buffer[:n], addr, nil
}

// processPacket handles one datagram. Only sink failures are returned;
// packet and stream errors are logged and the loop goes on.
func (r *Receiver) processPacket(data []byte, addr net.Addr) error {
	if len(data) > r.opts.BufferSize {
		logrus.WithFields(logrus.Fields{
			"function":    "Receiver.processPacket",
			"remote_addr": addr.String(),
			"buffer_size": r.opts.BufferSize,
		}).Warn("Dropping oversized RTP datagram")
		return nil
	}

	frame, err := r.demuxer.HandlePacket(data)
	if err != nil {
		r.logPacketError(err, addr)
		return nil
	}
	if frame == nil {
		return nil
	}
	return r.deliver(frame)
}

func (r *Receiver) deliver(frame *vp9.Frame) error {
	if err := r.sink.WriteFrame(frame); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":     "Receiver.deliver",
			"stream_index": frame.StreamIndex,
			"timestamp":    frame.Timestamp,
			"error":        err.Error(),
		}).Error("Frame sink rejected frame")
		return fmt.Errorf("failed to deliver frame: %w", err)
	}
	return nil
}

func (r *Receiver) logPacketError(err error, addr net.Addr) {
	entry := logrus.WithFields(logrus.Fields{
		"function":    "Receiver.processPacket",
		"remote_addr": addr.String(),
		"error":       err.Error(),
	})
	switch {
	case isHalted(err), errors.Is(err, ErrPayloadTypeMismatch),
		errors.Is(err, ErrDuplicatePacket), errors.Is(err, ErrLatePacket):
		entry.Debug("Ignoring RTP packet")
	case vp9.IsStreamFatal(err):
		entry.Error("VP9 stream became undecodable")
	default:
		entry.Warn("Dropping RTP packet")
	}
}
