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

package socket

import (
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/norensa/dtest/resource"
)

// ErrWouldBlock is returned by Recv when returnOnBlock is set and no data
// was available before the read deadline elapsed.
var ErrWouldBlock = errors.New("socket: would block")

// Socket wraps a single net.Conn (always TCP in this implementation) with
// the chunked send / block-aware receive behavior the message codec and
// sandbox protocol rely on.
type Socket struct {
	conn net.Conn
	mtu  int
	floor int
}

// New wraps an already-established connection. All traffic through it is
// counted by the resource tracker via resource.WrapConn.
func New(conn net.Conn, mtu, mtuFloor int) *Socket {
	return &Socket{conn: resource.WrapConn(conn), mtu: mtu, floor: mtuFloor}
}

// Dial connects to addr over TCP.
func Dial(addr string, mtu, mtuFloor int) (*Socket, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn, mtu, mtuFloor), nil
}

// Conn exposes the underlying net.Conn, e.g. for RecvFrame/SendFrame.
func (s *Socket) Conn() net.Conn {
	return s.conn
}

// LocalAddr and RemoteAddr mirror net.Conn for convenience.
func (s *Socket) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *Socket) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Close closes the underlying connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Send writes data in chunks no larger than the current MTU, shrinking the
// MTU when the kernel reports a message-too-large condition. The decay
// sequence is: linear down from the configured max to 8000, then a hard
// drop to 512, then linear down to the configured floor. Once decayed to
// the floor, a further EMSGSIZE is a hard failure.
func (s *Socket) Send(data []byte) error {
	for len(data) > 0 {
		chunk := data
		if len(chunk) > s.mtu {
			chunk = data[:s.mtu]
		}

		n, err := writeRetry(s.conn, chunk)
		if err != nil {
			if isMsgSizeError(err) {
				if !s.shrinkMTU() {
					return err
				}
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}

func (s *Socket) shrinkMTU() bool {
	switch {
	case s.mtu > 8000:
		s.mtu -= 1
	case s.mtu > 512:
		s.mtu = 512
	case s.mtu > s.floor:
		s.mtu--
	default:
		return false
	}
	return true
}

func writeRetry(conn net.Conn, p []byte) (int, error) {
	for {
		n, err := conn.Write(p)
		if err == nil {
			return n, nil
		}
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
			continue
		}
		return n, err
	}
}

func isMsgSizeError(err error) bool {
	return errors.Is(err, syscall.EMSGSIZE)
}

// Recv reads exactly n bytes. When returnOnBlock is true and no bytes
// arrive before a short deadline, it returns ErrWouldBlock instead of
// blocking indefinitely — the framing codec uses this to detect a peer
// that stalls mid-header.
func (s *Socket) Recv(n int, returnOnBlock bool) ([]byte, error) {
	buf := make([]byte, n)
	read := 0

	if returnOnBlock {
		_ = s.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		defer s.conn.SetReadDeadline(time.Time{})
	}

	for read < n {
		k, err := s.conn.Read(buf[read:])
		read += k
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() && returnOnBlock {
				return buf[:read], ErrWouldBlock
			}
			return buf[:read], err
		}
	}
	return buf, nil
}
