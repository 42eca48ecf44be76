package real

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/opd-ai/vp9depack/interfaces"
	"github.com/opd-ai/vp9depack/vp9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ interfaces.IFrameSink = (*DirectorySink)(nil)
	_ interfaces.IFrameSink = (*LogSink)(nil)
)

func TestNewDirectorySink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	sink, err := NewDirectorySink(dir)
	require.NoError(t, err)
	require.NotNil(t, sink)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = NewDirectorySink("")
	assert.ErrorIs(t, err, interfaces.ErrInvalidDirectory)
}

func TestDirectorySink_WriteFrame(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirectorySink(dir)
	require.NoError(t, err)

	frames := []*vp9.Frame{
		{Data: []byte{0x80, 0x01}, Timestamp: 3000, StreamIndex: 0, KeyFrame: true},
		{Data: []byte{0x84, 0x02, 0x03}, Timestamp: 6000, StreamIndex: 0},
		{Data: []byte{0x80}, Timestamp: 90, StreamIndex: 2, KeyFrame: true},
	}
	for _, f := range frames {
		require.NoError(t, sink.WriteFrame(f))
	}

	tests := []struct {
		path string
		want []byte
	}{
		{filepath.Join(dir, "stream-0", "0-3000.vp9"), []byte{0x80, 0x01}},
		{filepath.Join(dir, "stream-0", "1-6000.vp9"), []byte{0x84, 0x02, 0x03}},
		{filepath.Join(dir, "stream-2", "0-90.vp9"), []byte{0x80}},
	}
	for _, tt := range tests {
		got, err := os.ReadFile(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, SinkStats{Frames: 3, Bytes: 6, KeyFrames: 2, Streams: 2}, sink.Stats())
}

func TestDirectorySink_Close(t *testing.T) {
	sink, err := NewDirectorySink(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	err = sink.WriteFrame(&vp9.Frame{Data: []byte{0x80}})
	assert.ErrorIs(t, err, interfaces.ErrSinkClosed)
}

func TestDirectorySink_ConcurrentStreams(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirectorySink(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for stream := 0; stream < 4; stream++ {
		wg.Add(1)
		go func(stream int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				f := &vp9.Frame{Data: []byte{byte(i)}, Timestamp: uint32(i * 3000), StreamIndex: stream}
				assert.NoError(t, sink.WriteFrame(f))
			}
		}(stream)
	}
	wg.Wait()

	for stream := 0; stream < 4; stream++ {
		entries, err := os.ReadDir(filepath.Join(dir, fmt.Sprintf("stream-%d", stream)))
		require.NoError(t, err)
		assert.Len(t, entries, 10)
	}
	assert.Equal(t, uint64(40), sink.Stats().Frames)
}

func TestLogSink_WriteFrame(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sink := NewLogSink(logger)

	err := sink.WriteFrame(&vp9.Frame{
		Data:         []byte{0x80, 0x00, 0x00},
		Timestamp:    1234,
		StreamIndex:  1,
		KeyFrame:     true,
		HasPictureID: true,
		PictureID:    77,
		Width:        640,
		Height:       360,
		Fragments:    2,
	})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, uint32(1234), entry.Data["timestamp"])
	assert.Equal(t, 3, entry.Data["size"])
	assert.Equal(t, uint16(77), entry.Data["picture_id"])
	assert.Equal(t, uint16(640), entry.Data["width"])

	require.NoError(t, sink.WriteFrame(&vp9.Frame{Data: []byte{0x84}, StreamIndex: 1}))
	_, hasPictureID := hook.LastEntry().Data["picture_id"]
	assert.False(t, hasPictureID)

	assert.Equal(t, SinkStats{Frames: 2, Bytes: 4, KeyFrames: 1, Streams: 1}, sink.Stats())
}

func TestLogSink_Close(t *testing.T) {
	sink := NewLogSink(nil)
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.WriteFrame(&vp9.Frame{}), interfaces.ErrSinkClosed)
}
