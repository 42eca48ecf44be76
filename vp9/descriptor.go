package vp9

import (
	"fmt"
)

// Flag octet bits of the VP9 payload descriptor.
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	|I|P|L|F|B|E|V|Z| (REQUIRED)
//	+-+-+-+-+-+-+-+-+
const (
	flagPictureID        = 0x80 // I: picture ID present
	flagInterPredicted   = 0x40 // P: inter-picture predicted frame
	flagLayerIndices     = 0x20 // L: layer indices present
	flagFlexibleMode     = 0x10 // F: flexible mode, reference indices present
	flagStartOfFrame     = 0x08 // B: start of frame
	flagEndOfFrame       = 0x04 // E: end of frame
	flagScalability      = 0x02 // V: scalability structure present
	flagNotUpperLayerRef = 0x01 // Z: not a reference for upper spatial layers
)

const (
	// DescriptorRequiredSize is the size of the mandatory flag octet.
	DescriptorRequiredSize = 1

	// MinPayloadSize is the smallest payload that can carry a descriptor and codec data.
	MinPayloadSize = DescriptorRequiredSize + 1

	// MaxReferenceDiffs is the number of P_DIFF entries a descriptor may carry.
	MaxReferenceDiffs = 3

	// MaxPictureID is the largest 15-bit picture ID.
	MaxPictureID = 0x7fff

	// MaxShortPictureID is the largest picture ID that fits the 1-byte form.
	MaxShortPictureID = 0x7f

	pictureIDExtended = 0x80
	refDiffMore       = 0x01
)

// Resolution is the width and height of one spatial layer.
type Resolution struct {
	Width  uint16
	Height uint16
}

// PictureGroupEntry describes one picture of the picture group in a
// scalability structure.
type PictureGroupEntry struct {
	TemporalLayerID  uint8
	SwitchingUpPoint bool
	ReferenceDiffs   []uint8
}

// ScalabilityStructure is the optional SS block of a VP9 payload descriptor.
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	| N_S |Y|G|-|-|-|
//	+-+-+-+-+-+-+-+-+
//
// Only a single spatial layer (N_S = 0) is supported.
type ScalabilityStructure struct {
	// SpatialLayers is N_S + 1.
	SpatialLayers int
	// Resolutions has one entry per spatial layer when the Y bit was set.
	Resolutions []Resolution
	// HasPictureGroup mirrors the G bit.
	HasPictureGroup bool
	// PictureGroup holds the N_G entries of the picture group description.
	PictureGroup []PictureGroupEntry
}

// Descriptor is a decoded VP9 RTP payload descriptor.
//
// Each optional field is only meaningful when its presence flag is set; the
// presence flags come straight from the flag octet.
type Descriptor struct {
	HasPictureID bool
	// PictureID holds 7 or 15 significant bits depending on ExtendedPictureID.
	PictureID         uint16
	ExtendedPictureID bool

	InterPicturePredicted bool

	HasLayerIndices      bool
	TemporalLayerID      uint8
	SwitchingUpPoint     bool
	SpatialLayerID       uint8
	InterLayerDependency bool
	// TL0PicIdx is only present in non-flexible mode with layer indices.
	TL0PicIdx uint8

	// FlexibleMode is the F bit. Reference diffs follow when P is also set.
	FlexibleMode   bool
	ReferenceDiffs []uint8

	StartOfFrame bool
	EndOfFrame   bool

	HasScalabilityStructure bool
	Scalability             *ScalabilityStructure

	NotReferenceForUpperLayer bool
}

// KeyFrame reports whether the descriptor opens a frame that is not
// inter-picture predicted.
func (d *Descriptor) KeyFrame() bool {
	return d.StartOfFrame && !d.InterPicturePredicted
}

// HasReferenceIndices reports whether the descriptor carries a P_DIFF list.
func (d *Descriptor) HasReferenceIndices() bool {
	return d.FlexibleMode && d.InterPicturePredicted
}

// DecodeDescriptor parses the VP9 payload descriptor at the start of payload.
//
// It returns the descriptor and the number of bytes it occupied; payload[n:]
// is the codec data, which is always at least one byte long. The payload is
// never modified.
//
// Errors wrap ErrTooShort, ErrInvalidData or ErrUnsupportedFeature.
func DecodeDescriptor(payload []byte) (*Descriptor, int, error) {
	if len(payload) < MinPayloadSize {
		return nil, 0, fmt.Errorf("%w: got %d bytes", ErrTooShort, len(payload))
	}

	c := newByteCursor(payload)
	flags, err := c.readByte("flags")
	if err != nil {
		return nil, 0, err
	}

	d := &Descriptor{
		HasPictureID:              flag(flags, flagPictureID),
		InterPicturePredicted:     flag(flags, flagInterPredicted),
		HasLayerIndices:           flag(flags, flagLayerIndices),
		FlexibleMode:              flag(flags, flagFlexibleMode),
		StartOfFrame:              flag(flags, flagStartOfFrame),
		EndOfFrame:                flag(flags, flagEndOfFrame),
		HasScalabilityStructure:   flag(flags, flagScalability),
		NotReferenceForUpperLayer: flag(flags, flagNotUpperLayerRef),
	}

	if d.HasPictureID {
		if err := d.decodePictureID(c); err != nil {
			return nil, 0, err
		}
	}
	if d.HasLayerIndices {
		if err := d.decodeLayerIndices(c); err != nil {
			return nil, 0, err
		}
	}
	if d.HasReferenceIndices() {
		if err := d.decodeReferenceDiffs(c); err != nil {
			return nil, 0, err
		}
	}
	if d.HasScalabilityStructure {
		ss, err := decodeScalabilityStructure(c)
		if err != nil {
			return nil, 0, err
		}
		d.Scalability = ss
	}

	if err := c.need(1, "codec payload"); err != nil {
		return nil, 0, err
	}
	return d, c.consumed(), nil
}

// decodePictureID reads the 1 or 2 byte picture ID.
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	|M|PICTURE ID   |
//	+-+-+-+-+-+-+-+-+
//	| EXTENDED PID  | (when M is set)
//	+-+-+-+-+-+-+-+-+
func (d *Descriptor) decodePictureID(c *byteCursor) error {
	first, err := c.peekByte("picture ID")
	if err != nil {
		return err
	}
	if !flag(first, pictureIDExtended) {
		_, _ = c.readByte("picture ID")
		d.PictureID = uint16(first & MaxShortPictureID)
		return nil
	}
	v, err := c.readUint16("extended picture ID")
	if err != nil {
		return err
	}
	d.PictureID = v & MaxPictureID
	d.ExtendedPictureID = true
	return nil
}

// decodeLayerIndices reads the layer octet and, outside flexible mode, TL0PICIDX.
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	| TID |U| SID |D|
//	+-+-+-+-+-+-+-+-+
//	|   TL0PICIDX   | (non-flexible mode only)
//	+-+-+-+-+-+-+-+-+
func (d *Descriptor) decodeLayerIndices(c *byteCursor) error {
	b, err := c.readByte("layer indices")
	if err != nil {
		return err
	}
	d.TemporalLayerID = bitField(b, 5, 3)
	d.SwitchingUpPoint = flag(b, 0x10)
	d.SpatialLayerID = bitField(b, 1, 3)
	d.InterLayerDependency = flag(b, 0x01)

	if d.FlexibleMode {
		return nil
	}
	d.TL0PicIdx, err = c.readByte("TL0PICIDX")
	return err
}

// decodeReferenceDiffs reads up to MaxReferenceDiffs P_DIFF octets.
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	| P_DIFF      |N| up to 3 times
//	+-+-+-+-+-+-+-+-+
func (d *Descriptor) decodeReferenceDiffs(c *byteCursor) error {
	d.ReferenceDiffs = make([]uint8, 0, MaxReferenceDiffs)
	for i := 0; i < MaxReferenceDiffs; i++ {
		b, err := c.readByte("P_DIFF")
		if err != nil {
			return err
		}
		diff := bitField(b, 1, 7)
		if diff == 0 {
			return fmt.Errorf("%w: P_DIFF %d is zero", ErrInvalidData, i)
		}
		d.ReferenceDiffs = append(d.ReferenceDiffs, diff)
		if !flag(b, refDiffMore) {
			break
		}
	}
	return nil
}

// decodeScalabilityStructure reads the SS block.
//
//	+-+-+-+-+-+-+-+-+
//	| N_S |Y|G|-|-|-|
//	+-+-+-+-+-+-+-+-+              -\
//	|     WIDTH     | (16 bits)     . N_S + 1 times
//	|     HEIGHT    | (16 bits)     .
//	+-+-+-+-+-+-+-+-+              -/
//	|      N_G      | (when G)
//	+-+-+-+-+-+-+-+-+                            -\
//	| TID |U| R |-|-|                             . N_G times
//	|    P_DIFF     | (R times)                   .
//	+-+-+-+-+-+-+-+-+                            -/
func decodeScalabilityStructure(c *byteCursor) (*ScalabilityStructure, error) {
	b, err := c.readByte("scalability structure")
	if err != nil {
		return nil, err
	}
	ns := int(bitField(b, 5, 3))
	hasResolution := flag(b, 0x10)
	hasPictureGroup := flag(b, 0x08)

	if ns > 0 {
		return nil, fmt.Errorf("%w: scalability structure with %d spatial layers", ErrUnsupportedFeature, ns+1)
	}

	ss := &ScalabilityStructure{
		SpatialLayers:   ns + 1,
		HasPictureGroup: hasPictureGroup,
	}

	if hasResolution {
		if err := c.need(4*ss.SpatialLayers, "spatial layer resolutions"); err != nil {
			return nil, err
		}
		ss.Resolutions = make([]Resolution, ss.SpatialLayers)
		for i := range ss.Resolutions {
			w, _ := c.readUint16("width")
			h, _ := c.readUint16("height")
			ss.Resolutions[i] = Resolution{Width: w, Height: h}
		}
	}

	if !hasPictureGroup {
		return ss, nil
	}

	n, err := c.readByte("N_G")
	if err != nil {
		return nil, err
	}
	ss.PictureGroup = make([]PictureGroupEntry, 0, n)
	for i := 0; i < int(n); i++ {
		entry, err := c.readByte("picture group entry")
		if err != nil {
			return nil, err
		}
		r := int(bitField(entry, 2, 2))
		diffs, err := c.readBytes(r, "picture group P_DIFF")
		if err != nil {
			return nil, err
		}
		ss.PictureGroup = append(ss.PictureGroup, PictureGroupEntry{
			TemporalLayerID:  bitField(entry, 5, 3),
			SwitchingUpPoint: flag(entry, 0x10),
			ReferenceDiffs:   append([]uint8(nil), diffs...),
		})
	}
	return ss, nil
}
