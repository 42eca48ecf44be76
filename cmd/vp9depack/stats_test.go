package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opd-ai/vp9depack/rtp"
	pionrtp "github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedFrame(t *testing.T, demuxer *rtp.Demuxer, ssrc uint32, seq uint16) {
	t.Helper()

	pkt := &pionrtp.Packet{
		Header: pionrtp.Header{
			Version:        2,
			Marker:         true,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 3000,
			SSRC:           ssrc,
		},
		Payload: []byte{0x8C, 0x00, 0xAA, 0xBB},
	}
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	frame, err := demuxer.HandlePacket(raw)
	require.NoError(t, err)
	require.NotNil(t, frame)
}

func newStatsFixture(t *testing.T) *rtp.Demuxer {
	t.Helper()

	demuxer, err := rtp.NewDemuxer(nil)
	require.NoError(t, err)
	t.Cleanup(func() { demuxer.Close() })

	feedFrame(t, demuxer, 0xBEEF, 1)
	feedFrame(t, demuxer, 0xBEEF, 2)
	feedFrame(t, demuxer, 0xCAFE, 1)
	return demuxer
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatsRouter_Streams(t *testing.T) {
	router := newStatsRouter(newStatsFixture(t))

	rec := get(t, router, "/streams")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var infos []rtp.StreamInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 2)

	assert.Equal(t, uint32(0xBEEF), infos[0].SSRC)
	assert.Equal(t, 0, infos[0].Index)
	assert.Equal(t, uint64(2), infos[0].Frames)
	assert.Equal(t, uint32(0xCAFE), infos[1].SSRC)
	assert.Equal(t, 1, infos[1].Index)
}

func TestStatsRouter_Stream(t *testing.T) {
	router := newStatsRouter(newStatsFixture(t))

	rec := get(t, router, "/streams/48879")
	require.Equal(t, http.StatusOK, rec.Code)

	var info rtp.StreamInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, uint32(0xBEEF), info.SSRC)
	assert.Equal(t, uint64(2), info.Frames)
	assert.Equal(t, uint64(4), info.Bytes)
	assert.False(t, info.Halted)
	assert.NotEmpty(t, info.ID)
}

func TestStatsRouter_Errors(t *testing.T) {
	router := newStatsRouter(newStatsFixture(t))

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown stream", "/streams/12345", http.StatusNotFound},
		{"ssrc out of range", "/streams/99999999999", http.StatusBadRequest},
		{"non numeric ssrc", "/streams/abc", http.StatusNotFound},
		{"unknown path", "/frames", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, get(t, router, tt.path).Code)
		})
	}
}

func TestStatsRouter_Health(t *testing.T) {
	router := newStatsRouter(newStatsFixture(t))

	rec := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatsRouter_MethodNotAllowed(t *testing.T) {
	router := newStatsRouter(newStatsFixture(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/streams", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
