package vp9

import (
	"encoding/binary"
	"fmt"
)

// MarshalSize returns the number of bytes Marshal will produce.
func (d *Descriptor) MarshalSize() int {
	n := DescriptorRequiredSize
	if d.HasPictureID {
		if d.ExtendedPictureID || d.PictureID > MaxShortPictureID {
			n += 2
		} else {
			n++
		}
	}
	if d.HasLayerIndices {
		n++
		if !d.FlexibleMode {
			n++
		}
	}
	if d.HasReferenceIndices() {
		n += len(d.ReferenceDiffs)
	}
	if d.HasScalabilityStructure && d.Scalability != nil {
		ss := d.Scalability
		n++
		n += 4 * len(ss.Resolutions)
		if ss.HasPictureGroup {
			n++
			for _, e := range ss.PictureGroup {
				n += 1 + len(e.ReferenceDiffs)
			}
		}
	}
	return n
}

// Marshal serializes the descriptor in the layout DecodeDescriptor reads.
//
// The same invariants are enforced on the way out: at most three nonzero 7-bit
// reference diffs, a single spatial layer and a picture ID within 15 bits.
func (d *Descriptor) Marshal() ([]byte, error) {
	return d.AppendTo(make([]byte, 0, d.MarshalSize()))
}

// AppendTo appends the serialized descriptor to buf.
func (d *Descriptor) AppendTo(buf []byte) ([]byte, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	buf = append(buf, d.flagOctet())

	if d.HasPictureID {
		if d.ExtendedPictureID || d.PictureID > MaxShortPictureID {
			buf = binary.BigEndian.AppendUint16(buf, d.PictureID|pictureIDExtended<<8)
		} else {
			buf = append(buf, byte(d.PictureID))
		}
	}

	if d.HasLayerIndices {
		b := d.TemporalLayerID<<5 | d.SpatialLayerID<<1
		if d.SwitchingUpPoint {
			b |= 0x10
		}
		if d.InterLayerDependency {
			b |= 0x01
		}
		buf = append(buf, b)
		if !d.FlexibleMode {
			buf = append(buf, d.TL0PicIdx)
		}
	}

	if d.HasReferenceIndices() {
		for i, diff := range d.ReferenceDiffs {
			b := diff << 1
			if i < len(d.ReferenceDiffs)-1 {
				b |= refDiffMore
			}
			buf = append(buf, b)
		}
	}

	if d.HasScalabilityStructure {
		buf = d.Scalability.appendTo(buf)
	}
	return buf, nil
}

func (d *Descriptor) flagOctet() byte {
	var b byte
	set := func(on bool, mask byte) {
		if on {
			b |= mask
		}
	}
	set(d.HasPictureID, flagPictureID)
	set(d.InterPicturePredicted, flagInterPredicted)
	set(d.HasLayerIndices, flagLayerIndices)
	set(d.FlexibleMode, flagFlexibleMode)
	set(d.StartOfFrame, flagStartOfFrame)
	set(d.EndOfFrame, flagEndOfFrame)
	set(d.HasScalabilityStructure, flagScalability)
	set(d.NotReferenceForUpperLayer, flagNotUpperLayerRef)
	return b
}

func (d *Descriptor) validate() error {
	if d.HasPictureID && d.PictureID > MaxPictureID {
		return fmt.Errorf("%w: picture ID %d exceeds 15 bits", ErrInvalidDescriptor, d.PictureID)
	}
	if d.HasLayerIndices && (d.TemporalLayerID > 7 || d.SpatialLayerID > 7) {
		return fmt.Errorf("%w: layer IDs %d/%d exceed 3 bits", ErrInvalidDescriptor, d.TemporalLayerID, d.SpatialLayerID)
	}
	if d.HasReferenceIndices() {
		if len(d.ReferenceDiffs) == 0 || len(d.ReferenceDiffs) > MaxReferenceDiffs {
			return fmt.Errorf("%w: %d reference diffs, want 1-%d", ErrInvalidDescriptor, len(d.ReferenceDiffs), MaxReferenceDiffs)
		}
		for _, diff := range d.ReferenceDiffs {
			if diff == 0 || diff > 0x7f {
				return fmt.Errorf("%w: reference diff %d out of range", ErrInvalidDescriptor, diff)
			}
		}
	}
	if d.HasScalabilityStructure {
		if d.Scalability == nil {
			return fmt.Errorf("%w: V bit set without scalability structure", ErrInvalidDescriptor)
		}
		if err := d.Scalability.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (ss *ScalabilityStructure) validate() error {
	if ss.SpatialLayers != 1 {
		return fmt.Errorf("%w: %d spatial layers", ErrUnsupportedFeature, ss.SpatialLayers)
	}
	if len(ss.Resolutions) != 0 && len(ss.Resolutions) != ss.SpatialLayers {
		return fmt.Errorf("%w: %d resolutions for %d spatial layers", ErrInvalidDescriptor, len(ss.Resolutions), ss.SpatialLayers)
	}
	if len(ss.PictureGroup) > 0xff {
		return fmt.Errorf("%w: %d picture group entries", ErrInvalidDescriptor, len(ss.PictureGroup))
	}
	for _, e := range ss.PictureGroup {
		if e.TemporalLayerID > 7 || len(e.ReferenceDiffs) > 3 {
			return fmt.Errorf("%w: picture group entry tid=%d diffs=%d", ErrInvalidDescriptor, e.TemporalLayerID, len(e.ReferenceDiffs))
		}
	}
	return nil
}

func (ss *ScalabilityStructure) appendTo(buf []byte) []byte {
	b := byte(ss.SpatialLayers-1) << 5
	if len(ss.Resolutions) > 0 {
		b |= 0x10
	}
	if ss.HasPictureGroup {
		b |= 0x08
	}
	buf = append(buf, b)

	for _, r := range ss.Resolutions {
		buf = binary.BigEndian.AppendUint16(buf, r.Width)
		buf = binary.BigEndian.AppendUint16(buf, r.Height)
	}

	if !ss.HasPictureGroup {
		return buf
	}
	buf = append(buf, byte(len(ss.PictureGroup)))
	for _, e := range ss.PictureGroup {
		eb := e.TemporalLayerID<<5 | byte(len(e.ReferenceDiffs))<<2
		if e.SwitchingUpPoint {
			eb |= 0x10
		}
		buf = append(buf, eb)
		buf = append(buf, e.ReferenceDiffs...)
	}
	return buf
}
