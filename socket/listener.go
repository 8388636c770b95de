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
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Listener owns a TCP listening socket plus every connection accepted from
// it that has not yet been disposed. PollOrAccept is the single-threaded
// multiplexer the sandbox parent and distributed contexts use instead of a
// goroutine-per-connection model, matching the original's one-thread poll
// loop.
type Listener struct {
	mu   sync.Mutex
	ln   *net.TCPListener
	lfd  int
	mtu  int
	floor int
	conns map[int]*acceptedConn
}

type acceptedConn struct {
	fd int
	sk *Socket
	tc *net.TCPConn
}

// Listen opens a TCP listener on addr ("host:port", port 0 for ephemeral)
// with the given backlog hint (Go's net package does not expose backlog
// directly; it is accepted for interface parity with the original and
// otherwise unused).
func Listen(addr string, backlog, mtu, mtuFloor int) (*Listener, error) {
	_ = backlog
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	tln := ln.(*net.TCPListener)
	fd, err := fdOf(tln)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	return &Listener{ln: tln, lfd: fd, mtu: mtu, floor: mtuFloor, conns: make(map[int]*acceptedConn)}, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close disposes every accepted connection and closes the listener.
func (l *Listener) Close() error {
	l.mu.Lock()
	for fd, c := range l.conns {
		_ = c.tc.Close()
		delete(l.conns, fd)
	}
	l.mu.Unlock()
	return l.ln.Close()
}

// Accept blocks until a new connection arrives, wraps it as a Socket, and
// registers it for future PollOrAccept calls.
func (l *Listener) Accept() (*Socket, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	tc := conn.(*net.TCPConn)
	fd, err := fdOf(tc)
	if err != nil {
		_ = tc.Close()
		return nil, err
	}

	sk := New(tc, l.mtu, l.floor)
	l.mu.Lock()
	l.conns[fd] = &acceptedConn{fd: fd, sk: sk, tc: tc}
	l.mu.Unlock()
	return sk, nil
}

// Dispose removes and closes a connection previously returned by Accept or
// PollOrAccept, e.g. after it is found dead or fully drained.
func (l *Listener) Dispose(sk *Socket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for fd, c := range l.conns {
		if c.sk == sk {
			_ = c.tc.Close()
			delete(l.conns, fd)
			return
		}
	}
}

// PollOrAccept polls the listening fd and every open accepted connection
// simultaneously; the first readable one wins and is returned. A new
// connection is Accept()ed and returned as such; an existing connection
// that became readable is returned for the caller to read a frame from.
// Dead connections (POLLHUP/POLLERR/POLLNVAL) are disposed automatically.
// On timeout, ok is false and the caller should retry.
func (l *Listener) PollOrAccept(timeout time.Duration) (sk *Socket, isNew bool, ok bool, err error) {
	l.mu.Lock()
	fds := make([]unix.PollFd, 0, len(l.conns)+1)
	fds = append(fds, unix.PollFd{Fd: int32(l.lfd), Events: unix.POLLIN})
	order := make([]*acceptedConn, 0, len(l.conns))
	for _, c := range l.conns {
		fds = append(fds, unix.PollFd{Fd: int32(c.fd), Events: unix.POLLIN})
		order = append(order, c)
	}
	l.mu.Unlock()

	n, perr := unix.Poll(fds, int(timeout.Milliseconds()))
	if perr != nil {
		if perr == unix.EINTR {
			return nil, false, false, nil
		}
		return nil, false, false, perr
	}
	if n == 0 {
		return nil, false, false, nil
	}

	if fds[0].Revents&unix.POLLIN != 0 {
		s, aerr := l.Accept()
		return s, true, aerr == nil, aerr
	}

	for i, c := range order {
		f := fds[i+1]
		if f.Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			l.Dispose(c.sk)
			continue
		}
		if f.Revents&unix.POLLIN != 0 {
			return c.sk, false, true, nil
		}
	}

	return nil, false, false, nil
}

func fdOf(c interface{ SyscallConn() (syscall.RawConn, error) }) (int, error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	cerr := rc.Control(func(f uintptr) { fd = int(f) })
	if cerr != nil {
		return 0, cerr
	}
	if fd == 0 {
		return 0, fmt.Errorf("socket: could not resolve file descriptor")
	}
	return fd, nil
}
