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

package config

import "time"

// Config is the engine-level configuration consulted by the sandbox runner,
// socket transport, and distributed contexts.
type Config struct {
	// TimeoutFloor is the minimum wall-clock budget granted to any sandboxed
	// test regardless of the descriptor's requested timeout.
	TimeoutFloor time.Duration

	// DefaultMTU is the starting chunk size for Socket.Send before any
	// EMSGSIZE-driven shrink.
	DefaultMTU int

	// MTUFloor is the smallest chunk size Socket.Send will shrink to before
	// giving up and returning an error.
	MTUFloor int

	// SuperSocketPortOffset is added to a driver/worker's user-socket port
	// to derive its super-socket port.
	SuperSocketPortOffset int

	// UserMessageQueueCapacity bounds the per-peer user-message FIFO.
	UserMessageQueueCapacity int

	// PollTimeout is how long Socket.PollOrAccept blocks per call before
	// returning with no ready connection.
	PollTimeout time.Duration

	// KillGrace is how long the sandbox parent waits for a forked child to
	// exit on its own after the terminal message is received, before
	// escalating to an OS kill.
	KillGrace time.Duration
}

// Default returns the engine's built-in defaults.
func Default() *Config {
	return &Config{
		TimeoutFloor:             2 * time.Second,
		DefaultMTU:               65536,
		MTUFloor:                 64,
		SuperSocketPortOffset:    1,
		UserMessageQueueCapacity: 256,
		PollTimeout:              200 * time.Millisecond,
		KillGrace:                500 * time.Millisecond,
	}
}
