package vp9

import (
	"github.com/sirupsen/logrus"
)

// IsKeyFrame sniffs the VP9 uncompressed header of frame and reports whether
// frame_type is KEY_FRAME. Frames that only repeat an existing frame are not
// key frames.
func IsKeyFrame(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	b := frame[0]
	if bitField(b, 6, 2) != 2 { // frame_marker
		return false
	}
	profile := bitField(b, 5, 1) | bitField(b, 4, 1)<<1
	shift := uint(3)
	if profile == 3 {
		shift-- // reserved_zero
	}
	if flag(b, 1<<shift) { // show_existing_frame
		return false
	}
	return !flag(b, 1<<(shift-1)) // frame_type
}

// Payloader splits VP9 frames into RTP payloads. It implements the
// github.com/pion/rtp Payloader interface, so it can drive rtp.NewPacketizer.
//
// Every payload carries a 15-bit picture ID. Key frames carry a scalability
// structure with the configured resolution when Width and Height are set.
type Payloader struct {
	// Width and Height are advertised on key frames when both are nonzero.
	Width  uint16
	Height uint16

	pictureID uint16
}

// NewPayloader creates a payloader starting at the given picture ID.
func NewPayloader(initialPictureID uint16) *Payloader {
	return &Payloader{pictureID: initialPictureID & MaxPictureID}
}

// PictureID returns the picture ID the next frame will use.
func (p *Payloader) PictureID() uint16 {
	return p.pictureID
}

// Payload fragments frame into payloads of at most mtu bytes each.
// It returns nil when frame is empty or mtu cannot hold a descriptor and one
// byte of codec data.
func (p *Payloader) Payload(mtu uint16, frame []byte) [][]byte {
	if len(frame) == 0 {
		return nil
	}

	key := IsKeyFrame(frame)
	d := Descriptor{
		HasPictureID:          true,
		ExtendedPictureID:     true,
		PictureID:             p.pictureID,
		InterPicturePredicted: !key,
	}
	if key && p.Width > 0 && p.Height > 0 {
		d.HasScalabilityStructure = true
		d.Scalability = &ScalabilityStructure{
			SpatialLayers: 1,
			Resolutions:   []Resolution{{Width: p.Width, Height: p.Height}},
		}
	}

	// The first packet may carry the scalability structure; later ones only
	// the flag octet and picture ID.
	firstOverhead := d.MarshalSize()
	restOverhead := firstOverhead
	if d.HasScalabilityStructure {
		restOverhead -= 1 + 4*len(d.Scalability.Resolutions)
	}
	if int(mtu) <= firstOverhead {
		logrus.WithFields(logrus.Fields{
			"function": "Payloader.Payload",
			"mtu":      mtu,
			"overhead": firstOverhead,
		}).Warn("MTU too small for VP9 payload descriptor")
		return nil
	}

	var payloads [][]byte
	ss := d.Scalability
	for off := 0; off < len(frame); {
		overhead := restOverhead
		if off == 0 {
			overhead = firstOverhead
		}
		end := off + int(mtu) - overhead
		if end > len(frame) {
			end = len(frame)
		}

		d.StartOfFrame = off == 0
		d.EndOfFrame = end == len(frame)
		d.HasScalabilityStructure = off == 0 && ss != nil
		if !d.HasScalabilityStructure {
			d.Scalability = nil
		}

		out := make([]byte, 0, overhead+end-off)
		out, err := d.AppendTo(out)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Payloader.Payload",
				"error":    err.Error(),
			}).Error("Failed to encode VP9 payload descriptor")
			return nil
		}
		payloads = append(payloads, append(out, frame[off:end]...))
		off = end
	}

	p.pictureID = (p.pictureID + 1) & MaxPictureID
	return payloads
}
