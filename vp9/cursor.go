package vp9

import (
	"encoding/binary"
	"fmt"
)

// byteCursor reads forward over a payload and refuses to read past its end.
// Every accessor names the field it reads so truncation errors say what was
// missing.
type byteCursor struct {
	buf []byte
	off int
}

func newByteCursor(buf []byte) *byteCursor {
	return &byteCursor{buf: buf}
}

// remaining returns the number of unread bytes.
func (c *byteCursor) remaining() int {
	return len(c.buf) - c.off
}

// consumed returns the number of bytes read so far.
func (c *byteCursor) consumed() int {
	return c.off
}

// need fails with ErrTooShort unless n more bytes are available.
func (c *byteCursor) need(n int, field string) error {
	if n < 0 || c.remaining() < n {
		return fmt.Errorf("%w: %s needs %d bytes, %d remain", ErrTooShort, field, n, c.remaining())
	}
	return nil
}

// peekByte returns the next byte without consuming it.
func (c *byteCursor) peekByte(field string) (byte, error) {
	if err := c.need(1, field); err != nil {
		return 0, err
	}
	return c.buf[c.off], nil
}

// readByte consumes one byte.
func (c *byteCursor) readByte(field string) (byte, error) {
	b, err := c.peekByte(field)
	if err != nil {
		return 0, err
	}
	c.off++
	return b, nil
}

// readUint16 consumes two bytes in network byte order.
func (c *byteCursor) readUint16(field string) (uint16, error) {
	if err := c.need(2, field); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

// readBytes consumes n bytes and returns a view of them.
func (c *byteCursor) readBytes(n int, field string) ([]byte, error) {
	if err := c.need(n, field); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// flag reports whether any bit of mask is set in b.
func flag(b, mask byte) bool {
	return b&mask != 0
}

// bitField extracts width bits of b starting at shift (counted from the LSB).
func bitField(b byte, shift, width uint) uint8 {
	return (b >> shift) & (1<<width - 1)
}
