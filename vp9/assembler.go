package vp9

import (
	"github.com/opd-ai/vp9depack/limits"
)

// fragmentAssembler accumulates the codec bytes of one frame.
// A nil buf means no frame is in progress.
type fragmentAssembler struct {
	buf       []byte
	fragments int
	maxSize   int
}

func newFragmentAssembler(maxSize int) fragmentAssembler {
	return fragmentAssembler{maxSize: maxSize}
}

// begin starts a new, empty frame buffer.
func (a *fragmentAssembler) begin() {
	a.buf = make([]byte, 0, initialFrameCapacity)
	a.fragments = 0
}

// append grows the buffer by data. The ceiling is checked before copying so a
// rejected fragment never lands in the buffer.
func (a *fragmentAssembler) append(data []byte) error {
	if err := limits.ValidateFrameSize(len(a.buf)+len(data), a.maxSize); err != nil {
		return err
	}
	a.buf = append(a.buf, data...)
	a.fragments++
	return nil
}

// take hands the accumulated bytes to the caller and leaves no frame in progress.
func (a *fragmentAssembler) take() ([]byte, int) {
	buf, n := a.buf, a.fragments
	a.reset()
	return buf, n
}

// reset drops any partial frame.
func (a *fragmentAssembler) reset() {
	a.buf = nil
	a.fragments = 0
}

func (a *fragmentAssembler) size() int {
	return len(a.buf)
}

// initialFrameCapacity covers a typical single-MTU fragment.
const initialFrameCapacity = 1500
