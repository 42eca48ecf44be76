package rtp

import (
	"testing"

	"github.com/opd-ai/vp9depack/limits"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawPacket marshals a VP9 RTP packet for tests.
func rawPacket(t *testing.T, ssrc uint32, seq uint16, ts uint32, marker bool, payload []byte) []byte {
	t.Helper()
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           ssrc,
			Marker:         marker,
		},
		Payload: payload,
	}
	raw, err := pkt.Marshal()
	require.NoError(t, err)
	return raw
}

func TestParsePacket(t *testing.T) {
	raw := rawPacket(t, 0xCAFE, 7, 9000, true, []byte{0x8C, 0x00, 0xAA})

	pkt, err := ParsePacket(raw)

	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFE), pkt.SSRC)
	assert.Equal(t, uint16(7), pkt.SequenceNumber)
	assert.Equal(t, uint32(9000), pkt.Timestamp)
	assert.True(t, pkt.Marker)
	assert.Equal(t, []byte{0x8C, 0x00, 0xAA}, pkt.Payload)
}

func TestParsePacket_Invalid(t *testing.T) {
	wrongVersion := rawPacket(t, 1, 1, 1, false, []byte{0x88, 0x00})
	wrongVersion[0] = wrongVersion[0]&0x3F | 1<<6

	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"empty", nil, limits.ErrPacketEmpty},
		{"shorter than header", make([]byte, 11), limits.ErrPacketTooSmall},
		{"too large", make([]byte, limits.MaxRTPPacketSize+1), limits.ErrPacketTooLarge},
		{"version 1", wrongVersion, ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt, err := ParsePacket(tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, pkt)
		})
	}
}

func TestParsePacket_TruncatedCSRC(t *testing.T) {
	raw := rawPacket(t, 1, 1, 1, false, nil)
	raw[0] |= 0x0F // claims 15 CSRCs that are not there

	_, err := ParsePacket(raw)
	assert.Error(t, err)
}
