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

package distributed

import (
	"context"
	"errors"
	"sync"

	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/socket"
)

// ErrClosed is returned by Recv/Wait/Send once the worker's connection to
// the driver has gone away.
var ErrClosed = errors.New("distributed: connection to driver closed")

// Context is handed to a distributed test body, giving it its position
// among the run's workers and the coordination primitives relayed through
// the driver. The driver's own body (see Test.DriverBody) is handed a
// Context too, whose Index() returns -1 to mark it as the driver rather
// than a worker.
type Context interface {
	context.Context

	// Index is this worker's position in [0, Count), or -1 for the driver
	// body.
	Index() int
	// Count is the total number of workers in this run.
	Count() int

	// Notify signals arrival at barrier. It does not block.
	Notify(barrier string)
	// Wait blocks until every worker (and the driver body, when one is set)
	// has called Notify with the same barrier name, or the context is done.
	Wait(barrier string) error

	// Send relays payload to the worker at index to, via the driver.
	Send(to int, payload []byte) error
	// Recv blocks until a message sent via Send arrives, returning its
	// payload and the sending worker's index.
	Recv() ([]byte, int, error)
}

type userMsg struct {
	from    int
	payload []byte
}

type workerContext struct {
	context.Context
	cancel context.CancelFunc

	index, count int
	userSk       *socket.Socket
	writeMu      sync.Mutex

	mu       sync.Mutex
	barriers map[string]chan struct{}

	inbox chan userMsg
}

func newWorkerContext(parent context.Context, index, count int, userSk *socket.Socket, queueCapacity int) *workerContext {
	ctx, cancel := context.WithCancel(parent)
	return &workerContext{
		Context:  ctx,
		cancel:   cancel,
		index:    index,
		count:    count,
		userSk:   userSk,
		barriers: make(map[string]chan struct{}),
		inbox:    make(chan userMsg, queueCapacity),
	}
}

func (c *workerContext) Index() int { return c.index }
func (c *workerContext) Count() int { return c.count }

func (c *workerContext) send(m *message.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return message.SendFrame(c.userSk.Conn(), m)
}

func (c *workerContext) Notify(barrier string) {
	_ = c.send(newNotify(barrier))
}

func (c *workerContext) Wait(barrier string) error {
	c.mu.Lock()
	ch, ok := c.barriers[barrier]
	if !ok {
		ch = make(chan struct{})
		c.barriers[barrier] = ch
	}
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-c.Done():
		return ErrClosed
	}
}

// releaseBarrier is called by the connection's read loop when a NOTIFY
// frame comes back from the driver, meaning every worker has arrived.
func (c *workerContext) releaseBarrier(barrier string) {
	c.mu.Lock()
	ch, ok := c.barriers[barrier]
	if !ok {
		ch = make(chan struct{})
		c.barriers[barrier] = ch
	}
	c.mu.Unlock()

	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (c *workerContext) Send(to int, payload []byte) error {
	return c.send(newUserMessage(c.index, to, payload))
}

func (c *workerContext) Recv() ([]byte, int, error) {
	select {
	case m := <-c.inbox:
		return m.payload, m.from, nil
	case <-c.Done():
		return nil, 0, ErrClosed
	}
}

func (c *workerContext) deliver(from int, payload []byte) {
	select {
	case c.inbox <- userMsg{from: from, payload: payload}:
	case <-c.Done():
	}
}

// driverContext is the Context handed to a Test's DriverBody. Unlike
// workerContext, it has no socket of its own: Notify/Wait arrive directly
// at the in-process Driver, and Send/Recv are routed through the same
// handles map the driver already uses to relay worker traffic.
type driverContext struct {
	context.Context
	cancel context.CancelFunc

	count  int
	driver *Driver

	inbox chan userMsg
}

func newDriverContext(parent context.Context, count int, d *Driver, queueCapacity int) *driverContext {
	ctx, cancel := context.WithCancel(parent)
	return &driverContext{
		Context: ctx,
		cancel:  cancel,
		count:   count,
		driver:  d,
		inbox:   make(chan userMsg, queueCapacity),
	}
}

func (c *driverContext) Index() int { return driverIndex }
func (c *driverContext) Count() int { return c.count }

func (c *driverContext) Notify(barrier string) {
	c.driver.arrive(barrier)
}

func (c *driverContext) Wait(barrier string) error {
	return c.driver.driverWait(c.Context, barrier)
}

func (c *driverContext) Send(to int, payload []byte) error {
	return c.driver.sendFromDriver(to, payload)
}

func (c *driverContext) Recv() ([]byte, int, error) {
	select {
	case m := <-c.inbox:
		return m.payload, m.from, nil
	case <-c.Done():
		return nil, 0, ErrClosed
	}
}

func (c *driverContext) deliver(from int, payload []byte) {
	select {
	case c.inbox <- userMsg{from: from, payload: payload}:
	case <-c.Done():
	}
}
