package rtp

// sequenceEvent classifies a sequence number relative to the highest one seen.
type sequenceEvent int

const (
	seqFirst sequenceEvent = iota
	seqInOrder
	seqGap
	seqDuplicate
	seqLate
)

// sequenceTracker follows the 16-bit RTP sequence number of one stream the
// way RFC 3550 appendix A.1 does, without probation. Packets are never
// reordered here; gaps and late arrivals are only counted.
type sequenceTracker struct {
	started bool
	maxSeq  uint16
	cycles  uint32

	received   uint64
	lost       uint64
	duplicates uint64
	late       uint64
}

// update records seq and returns how it relates to the stream so far, along
// with the number of packets skipped for seqGap.
func (s *sequenceTracker) update(seq uint16) (sequenceEvent, uint16) {
	s.received++
	if !s.started {
		s.started = true
		s.maxSeq = seq
		return seqFirst, 0
	}

	delta := seq - s.maxSeq
	switch {
	case delta == 0:
		s.duplicates++
		return seqDuplicate, 0
	case delta < 0x8000:
		if seq < s.maxSeq {
			s.cycles++
		}
		s.maxSeq = seq
		if delta == 1 {
			return seqInOrder, 0
		}
		s.lost += uint64(delta - 1)
		return seqGap, delta - 1
	default:
		s.late++
		return seqLate, 0
	}
}

// extendedMax returns the highest sequence number seen, extended with the
// wrap-around count.
func (s *sequenceTracker) extendedMax() uint32 {
	return s.cycles<<16 | uint32(s.maxSeq)
}
