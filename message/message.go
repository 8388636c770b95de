/*
 * MIT License
 *
 * Copyright (c) 2026 The dtest-go Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package message

import (
	"encoding/binary"
	"errors"

	"github.com/norensa/dtest/resource"
)

const headerSize = 8

const defaultBufferSize = 1024

// ErrShortRead is returned by Read* helpers when the buffer has fewer bytes
// remaining than requested.
var ErrShortRead = errors.New("message: short read")

// Message is a growable write/read cursor over a single wire frame. The
// zero value is not usable; construct with New or Decode.
type Message struct {
	buf    []byte
	cursor int // write cursor / read cursor, depending on phase
	reading bool
}

// New allocates a Message with room for the header plus an initial body
// capacity hint.
func New() *Message {
	resource.Lock()
	defer resource.Unlock()

	m := &Message{buf: make([]byte, headerSize, defaultBufferSize)}
	m.cursor = headerSize
	return m
}

func (m *Message) fit(n int) {
	resource.Lock()
	defer resource.Unlock()

	need := m.cursor + n
	if need <= cap(m.buf) {
		return
	}
	grow := n
	if grow < defaultBufferSize {
		grow = defaultBufferSize
	}
	nb := make([]byte, len(m.buf), cap(m.buf)+grow)
	copy(nb, m.buf)
	m.buf = nb
}

// Reset clears the message back to an empty write cursor, reusing the
// backing array.
func (m *Message) Reset() {
	m.buf = m.buf[:headerSize]
	m.cursor = headerSize
	m.reading = false
}

// Bytes returns the full wire frame with the length header patched in,
// ready to be sent in one write. Callers must not retain the returned
// slice across subsequent writes to this Message — later growth may
// reallocate the backing array.
func (m *Message) Bytes() []byte {
	binary.LittleEndian.PutUint64(m.buf[0:headerSize], uint64(len(m.buf)))
	return m.buf
}

// WriteUint8 appends one byte.
func (m *Message) WriteUint8(v uint8) {
	m.fit(1)
	m.buf = append(m.buf, v)
	m.cursor += 1
}

// WriteUint32 appends a little-endian uint32.
func (m *Message) WriteUint32(v uint32) {
	m.fit(4)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	m.buf = append(m.buf, b[:]...)
	m.cursor += 4
}

// WriteUint64 appends a little-endian uint64.
func (m *Message) WriteUint64(v uint64) {
	m.fit(8)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	m.buf = append(m.buf, b[:]...)
	m.cursor += 8
}

// WriteBytes appends a length-prefixed byte string: uint64 length followed
// by the raw bytes.
func (m *Message) WriteBytes(p []byte) {
	m.WriteUint64(uint64(len(p)))
	m.fit(len(p))
	m.buf = append(m.buf, p...)
	m.cursor += len(p)
}

// WriteString appends a length-prefixed, NUL-terminated string.
func (m *Message) WriteString(s string) {
	b := append([]byte(s), 0)
	m.WriteBytes(b)
}

// Decode wraps a raw received payload (post-header) for sequential reads.
func Decode(payload []byte) *Message {
	return &Message{buf: payload, cursor: 0, reading: true}
}

func (m *Message) need(n int) error {
	if m.cursor+n > len(m.buf) {
		return ErrShortRead
	}
	return nil
}

// ReadUint8 consumes one byte.
func (m *Message) ReadUint8() (uint8, error) {
	if err := m.need(1); err != nil {
		return 0, err
	}
	v := m.buf[m.cursor]
	m.cursor++
	return v, nil
}

// ReadUint32 consumes a little-endian uint32.
func (m *Message) ReadUint32() (uint32, error) {
	if err := m.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(m.buf[m.cursor : m.cursor+4])
	m.cursor += 4
	return v, nil
}

// ReadUint64 consumes a little-endian uint64.
func (m *Message) ReadUint64() (uint64, error) {
	if err := m.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(m.buf[m.cursor : m.cursor+8])
	m.cursor += 8
	return v, nil
}

// ReadBytes consumes a length-prefixed byte string.
func (m *Message) ReadBytes() ([]byte, error) {
	n, err := m.ReadUint64()
	if err != nil {
		return nil, err
	}
	if err := m.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.buf[m.cursor:m.cursor+int(n)])
	m.cursor += int(n)
	return out, nil
}

// ReadString consumes a length-prefixed, NUL-terminated string, stripping
// the trailing NUL.
func (m *Message) ReadString() (string, error) {
	b, err := m.ReadBytes()
	if err != nil {
		return "", err
	}
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b), nil
}

// Remaining reports how many unread payload bytes remain.
func (m *Message) Remaining() int {
	return len(m.buf) - m.cursor
}
