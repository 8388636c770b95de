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
	"io"
	"net"
)

// ErrInvalidFrame is returned when a received header claims a length
// shorter than the header itself.
var ErrInvalidFrame = errors.New("message: invalid frame length")

// SendFrame writes the whole message as one frame: the header is patched
// with the current length and the buffer is handed to conn.Write in a
// single call, retrying on short writes.
func SendFrame(conn net.Conn, m *Message) error {
	buf := m.Bytes()
	for written := 0; written < len(buf); {
		n, err := conn.Write(buf[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

// RecvFrame reads exactly one frame: 8 header bytes, then length-8 payload
// bytes. partial is true when the peer supplied some but fewer than 8
// header bytes, or a full header but not the whole payload, before
// blocking or closing — the caller (typically a PollOrAccept loop)
// uses this to decide whether the connection is merely slow or genuinely
// dead.
func RecvFrame(conn net.Conn) (m *Message, partial bool, err error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(conn, header)
	if err != nil {
		return nil, n > 0 && n < headerSize, err
	}

	length := binary.LittleEndian.Uint64(header)
	if length < headerSize {
		return nil, false, ErrInvalidFrame
	}

	payload := make([]byte, length-headerSize)
	if len(payload) > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return nil, true, err
		}
	}

	return Decode(payload), false, nil
}
