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
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/norensa/dtest/config"
	"github.com/norensa/dtest/dtlog"
	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/resource"
	"github.com/norensa/dtest/socket"
)

// driverIndex is the sentinel worker index used to address the driver body
// itself over the USER_MESSAGE wire path — never a valid worker index,
// which always lies in [0, count).
const driverIndex = -1

// workerResult is one worker's contribution to a distributed test's merged
// Record.
type workerResult struct {
	index    int
	ok       bool
	code     uint32
	errText  string
	elapsed  time.Duration
	snapshot resource.Snapshot
}

type workerHandle struct {
	index int
	// id correlates this worker's log lines and frames across the driver's
	// lifetime independent of its index, which is only a wire-protocol
	// addressing detail and gets reused across separate Test.Execute runs.
	id      uuid.UUID
	userSk  *socket.Socket
	superSk *socket.Socket
	outbox  chan *message.Message
}

// Driver coordinates one distributed test run: it owns the user and super
// listeners, sends each worker its RUN_TEST as soon as that worker has
// checked in (without waiting for the others), relays
// NOTIFY barrier releases and USER_MESSAGE traffic, and collects each
// worker's FINISHED_TEST into a merged result. When a driver body is set
// via SetDriverBody, it runs concurrently with the workers in the driver's
// own process and participates in the same barriers.
type Driver struct {
	cfg   *config.Config
	key   string
	count int

	userLn  *socket.Listener
	superLn *socket.Listener

	mu       sync.Mutex
	handles  map[int]*workerHandle
	barriers map[string]int
	results  map[int]workerResult

	finished chan struct{}
	once     sync.Once

	driverBody     Body
	driverCtx      *driverContext
	driverBarriers map[string]chan struct{}

	driverErr      error
	driverElapsed  time.Duration
	driverSnapshot resource.Snapshot
}

// NewDriver opens the user listener on an ephemeral port and the super
// listener at that port plus cfg.SuperSocketPortOffset.
func NewDriver(key string, count int, cfg *config.Config) (*Driver, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	userLn, err := socket.Listen("127.0.0.1:0", count, cfg.DefaultMTU, cfg.MTUFloor)
	if err != nil {
		return nil, err
	}

	userAddr := userLn.Addr().String()
	superAddr, err := offsetAddr(userAddr, cfg.SuperSocketPortOffset)
	if err != nil {
		_ = userLn.Close()
		return nil, err
	}

	superLn, err := socket.Listen(superAddr, count, cfg.DefaultMTU, cfg.MTUFloor)
	if err != nil {
		_ = userLn.Close()
		return nil, err
	}

	return &Driver{
		cfg:            cfg,
		key:            key,
		count:          count,
		userLn:         userLn,
		superLn:        superLn,
		handles:        make(map[int]*workerHandle, count),
		barriers:       make(map[string]int),
		results:        make(map[int]workerResult, count),
		finished:       make(chan struct{}),
		driverBarriers: make(map[string]chan struct{}),
	}, nil
}

// UserAddr and SuperAddr are the addresses workers dial.
func (d *Driver) UserAddr() string  { return d.userLn.Addr().String() }
func (d *Driver) SuperAddr() string { return d.superLn.Addr().String() }

// SetDriverBody installs the body the driver runs on a goroutine in its own
// process, concurrently with the workers, joined to the same NOTIFY
// barriers. The body is not isolated in a sandbox child process. Must be
// called before Run.
func (d *Driver) SetDriverBody(body Body) {
	d.driverBody = body
}

// DriverErr, DriverElapsed and DriverSnapshot report the outcome of the
// driver body set via SetDriverBody, valid once Run has returned.
func (d *Driver) DriverErr() error                  { return d.driverErr }
func (d *Driver) DriverElapsed() time.Duration      { return d.driverElapsed }
func (d *Driver) DriverSnapshot() resource.Snapshot { return d.driverSnapshot }

// arrivalThreshold is the number of arrivals at a barrier needed to release
// it: every worker, plus the driver body itself when one is set.
func (d *Driver) arrivalThreshold() int {
	if d.driverBody != nil {
		return d.count + 1
	}
	return d.count
}

// Run blocks until every worker has reported FINISHED_TEST (and, if a
// driver body is set, it has also returned) or timeout elapses, then
// returns the per-worker results in index order.
func (d *Driver) Run(timeout time.Duration) ([]workerResult, error) {
	defer d.userLn.Close()
	defer d.superLn.Close()

	go d.acceptLoop(d.superLn, true)
	go d.acceptLoop(d.userLn, false)

	driverDone := make(chan struct{})
	if d.driverBody != nil {
		deadline := context.Background()
		var cancel context.CancelFunc
		if timeout > 0 {
			deadline, cancel = context.WithTimeout(deadline, timeout)
			defer cancel()
		}
		d.driverCtx = newDriverContext(deadline, d.count, d, d.cfg.UserMessageQueueCapacity)

		go func() {
			defer close(driverDone)
			before := resource.Take()
			start := time.Now()
			resource.Track(true)
			err := runBodyWithRecover(d.driverCtx, d.driverBody)
			resource.Track(false)
			d.driverElapsed = time.Since(start)
			after := resource.Take()
			d.driverSnapshot = resource.Delta(before, after)
			d.driverErr = err
		}()
	} else {
		close(driverDone)
	}

	deadline := time.After(timeout)
	workersDone := d.finished
	for workersDone != nil || driverDone != nil {
		select {
		case <-workersDone:
			workersDone = nil
		case <-driverDone:
			driverDone = nil
		case <-deadline:
			dtlog.New().WithModule(d.key).WithStatus("TIMEOUT").WithField("timeout", timeout.String()).Warn("distributed run timed out")
			if d.driverCtx != nil {
				d.driverCtx.cancel()
			}
			d.broadcastSuper(newTerminate())
			return d.snapshotResults(), fmt.Errorf("distributed: %s elapsed waiting for %d worker(s)", timeout, d.count)
		}
	}

	d.broadcastSuper(newTerminate())
	return d.snapshotResults(), nil
}

func (d *Driver) snapshotResults() []workerResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]workerResult, 0, len(d.results))
	for i := 0; i < d.count; i++ {
		if r, ok := d.results[i]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (d *Driver) broadcastSuper(m *message.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range d.handles {
		if h.superSk != nil {
			_ = message.SendFrame(h.superSk.Conn(), m)
		}
	}
}

// acceptLoop accepts exactly d.count connections from ln, each of which
// must open with a WORKER_STARTED handshake frame identifying its worker
// index, and wires it into the matching workerHandle.
func (d *Driver) acceptLoop(ln *socket.Listener, isSuper bool) {
	for i := 0; i < d.count; i++ {
		sk, err := ln.Accept()
		if err != nil {
			return
		}

		m, _, err := message.RecvFrame(sk.Conn())
		if err != nil {
			_ = sk.Close()
			continue
		}
		op, err := message.ReadOp(m)
		if err != nil || op != message.OpWorkerStarted {
			_ = sk.Close()
			continue
		}
		idx, err := readWorkerStarted(m)
		if err != nil {
			_ = sk.Close()
			continue
		}

		h := d.handle(idx)
		if isSuper {
			h.superSk = sk
		} else {
			h.userSk = sk
			go d.readLoop(h)
			h.outbox <- newRunTest(d.key, h.index, d.count)
		}
	}
}

func (d *Driver) handle(idx int) *workerHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[idx]
	if !ok {
		h = &workerHandle{index: idx, id: uuid.New(), outbox: make(chan *message.Message, d.cfg.UserMessageQueueCapacity)}
		d.handles[idx] = h
		dtlog.New().WithModule(d.key).WithWorker(h.id.String()).WithField("index", idx).Debug("worker registered")
		go func() {
			for m := range h.outbox {
				if h.userSk != nil {
					_ = message.SendFrame(h.userSk.Conn(), m)
				}
			}
		}()
	}
	return h
}

func (d *Driver) readLoop(h *workerHandle) {
	for {
		m, _, err := message.RecvFrame(h.userSk.Conn())
		if err != nil {
			return
		}
		op, err := message.ReadOp(m)
		if err != nil {
			continue
		}

		switch op {
		case message.OpFinishedTest:
			d.onFinished(m)
		case message.OpNotify:
			d.onNotify(m)
		case message.OpUserMessage:
			d.onUserMessage(m)
		}
	}
}

func (d *Driver) onFinished(m *message.Message) {
	idx, ok, code, text, elapsed, snap, err := readFinishedTest(m)
	if err != nil {
		return
	}

	d.mu.Lock()
	d.results[idx] = workerResult{index: idx, ok: ok, code: code, errText: text, elapsed: elapsed, snapshot: snap}
	done := len(d.results) == d.count
	handleID := ""
	if h, hok := d.handles[idx]; hok {
		handleID = h.id.String()
	}
	d.mu.Unlock()

	status := "PASS"
	if !ok {
		status = "FAIL"
	}
	dtlog.New().WithModule(d.key).WithWorker(handleID).WithStatus(status).Info("worker finished")

	if done {
		d.once.Do(func() { close(d.finished) })
	}
}

func (d *Driver) onNotify(m *message.Message) {
	barrier, err := readNotify(m)
	if err != nil {
		return
	}
	d.arrive(barrier)
}

// arrive records one arrival at barrier, worker or driver alike, and once
// every participant (every worker, plus the driver body if one is running)
// has arrived, releases every worker via NOTIFY and the driver body via its
// local barrier channel.
func (d *Driver) arrive(barrier string) {
	d.mu.Lock()
	d.barriers[barrier]++
	ready := d.barriers[barrier] >= d.arrivalThreshold()
	if ready {
		d.barriers[barrier] = 0
	}
	handles := make([]*workerHandle, 0, len(d.handles))
	if ready {
		for _, h := range d.handles {
			handles = append(handles, h)
		}
	}
	d.mu.Unlock()

	if !ready {
		return
	}

	// Each handle gets its own Message: Message.Bytes() patches the
	// length header in place on every send, so sharing one *Message
	// across concurrent writer goroutines would race.
	for _, h := range handles {
		h.outbox <- newNotify(barrier)
	}
	if d.driverCtx != nil {
		d.releaseDriverBarrier(barrier)
	}
}

// releaseDriverBarrier wakes any driverWait call blocked on barrier.
func (d *Driver) releaseDriverBarrier(barrier string) {
	d.mu.Lock()
	ch, ok := d.driverBarriers[barrier]
	if !ok {
		ch = make(chan struct{})
		d.driverBarriers[barrier] = ch
	}
	d.mu.Unlock()

	select {
	case <-ch:
	default:
		close(ch)
	}
}

// driverWait blocks until arrive has released barrier for the driver body,
// mirroring workerContext.Wait but driven locally instead of over a socket.
func (d *Driver) driverWait(ctx context.Context, barrier string) error {
	d.mu.Lock()
	ch, ok := d.driverBarriers[barrier]
	if !ok {
		ch = make(chan struct{})
		d.driverBarriers[barrier] = ch
	}
	d.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ErrClosed
	}
}

func (d *Driver) onUserMessage(m *message.Message) {
	from, to, payload, err := readUserMessage(m)
	if err != nil {
		return
	}

	if to == driverIndex {
		if d.driverCtx != nil {
			d.driverCtx.deliver(from, payload)
		}
		return
	}

	d.mu.Lock()
	target, ok := d.handles[to]
	d.mu.Unlock()
	if !ok {
		return
	}
	target.outbox <- newUserMessage(from, to, payload)
}

// sendFromDriver relays a message from the driver body to worker `to`,
// exactly as a worker's Send would relay to another worker.
func (d *Driver) sendFromDriver(to int, payload []byte) error {
	d.mu.Lock()
	target, ok := d.handles[to]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("distributed: no worker at index %d", to)
	}
	target.outbox <- newUserMessage(driverIndex, to, payload)
	return nil
}

// offsetAddr rewrites "host:port" to "host:port+offset".
func offsetAddr(addr string, offset int) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", host, port+offset), nil
}
