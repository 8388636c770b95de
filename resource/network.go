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

package resource

import (
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// RecordSend/RecordReceive update the network counters. They are called by
// WrapConn's decorator rather than by a hooked send()/recv().
func RecordSend(n int) {
	if !enter() {
		return
	}
	defer exit()
	std.mu.Lock()
	std.netSendBytes += uint64(n)
	std.netSendCount++
	std.mu.Unlock()
}

func RecordReceive(n int) {
	if !enter() {
		return
	}
	defer exit()
	std.mu.Lock()
	std.netRecvBytes += uint64(n)
	std.netRecvCount++
	std.mu.Unlock()
}

// FaultyNetworkConfig configures the probabilistic datagram dropper.
// Stream (TCP) sockets are never dropped; only connectionless traffic
// wrapped through WrapConn with a *net.UDPConn is subject to it.
type FaultyNetworkConfig struct {
	// Chance is the probability, in [0,1], that any given send succeeds
	// once the dropper is outside a hole.
	Chance float64
	// HoleDuration bounds how long the process-wide dropper keeps dropping,
	// once it does,
	// before re-rolling independently per send.
	HoleDuration time.Duration
}

var faulty atomic.Value // holds FaultyNetworkConfig, zero value = disabled

func init() {
	faulty.Store(FaultyNetworkConfig{})
}

// SetFaultyNetwork installs (or, with a zero-value cfg, clears) the
// datagram dropper used by WrapConn for UDP connections.
func SetFaultyNetwork(cfg FaultyNetworkConfig) {
	faulty.Store(cfg)
}

type dropState struct {
	mu       sync.Mutex
	holeUntil time.Time
}

var drop dropState

func shouldDrop() bool {
	cfg := faulty.Load().(FaultyNetworkConfig)
	if cfg.Chance <= 0 && cfg.HoleDuration <= 0 {
		return false
	}

	drop.mu.Lock()
	defer drop.mu.Unlock()

	now := time.Now()
	if now.Before(drop.holeUntil) {
		return true
	}

	if rand.Float64() >= cfg.Chance {
		if cfg.HoleDuration > 0 {
			d := time.Duration(rand.Int63n(int64(cfg.HoleDuration) + 1))
			drop.holeUntil = now.Add(d)
		}
		return true
	}
	return false
}

// WrapConn decorates a net.Conn so every Write/Read is counted against the
// network tracker. UDP connections additionally consult the faulty-network
// dropper on Write; TCP connections are never dropped.
func WrapConn(c net.Conn) net.Conn {
	_, isUDP := c.(*net.UDPConn)
	return &trackedConn{Conn: c, udp: isUDP}
}

type trackedConn struct {
	net.Conn
	udp bool
}

func (c *trackedConn) Write(p []byte) (int, error) {
	if c.udp && shouldDrop() {
		return len(p), nil
	}
	n, err := c.Conn.Write(p)
	RecordSend(n)
	return n, err
}

func (c *trackedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	RecordReceive(n)
	return n, err
}
