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
	"os"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/norensa/dtest/config"
	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/dtlog"
	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/resource"
	"github.com/norensa/dtest/socket"
	"github.com/norensa/dtest/stack"
)

const (
	envDistKey       = "DTEST_DIST_KEY"
	envDistUserAddr  = "DTEST_DIST_USER_ADDR"
	envDistSuperAddr = "DTEST_DIST_SUPER_ADDR"
	envDistIndex     = "DTEST_DIST_INDEX"
	envDistCount     = "DTEST_DIST_COUNT"
	envDistTimeout   = "DTEST_DIST_TIMEOUT_NS"
)

// Body is a distributed test's measured work, run identically (but with a
// distinct Index) on every worker.
type Body func(ctx Context) error

// Spec registers one distributed test body under a key, mirroring
// sandbox.Spec's registry so a re-exec'd worker process can find the same
// Body a driver-side Test constructed it from.
type Spec struct {
	Key  string
	Body Body
}

var (
	registryMu sync.Mutex
	registry   = map[string]Spec{}
)

// Register installs spec under spec.Key.
func Register(spec Spec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[spec.Key] = spec
}

func lookup(key string) (Spec, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := registry[key]
	return s, ok
}

// MaybeRunAsWorker checks whether this process was re-exec'd as a
// distributed worker and, if so, connects to the driver, runs the
// registered Spec and reports back, then exits. It never returns when it
// handled worker mode.
func MaybeRunAsWorker() {
	key := os.Getenv(envDistKey)
	if key == "" {
		return
	}

	index, _ := strconv.Atoi(os.Getenv(envDistIndex))
	count, _ := strconv.Atoi(os.Getenv(envDistCount))
	timeoutNs, _ := strconv.ParseInt(os.Getenv(envDistTimeout), 10, 64)

	code := runWorker(key, os.Getenv(envDistUserAddr), os.Getenv(envDistSuperAddr), index, count, time.Duration(timeoutNs))
	os.Exit(code)
}

func runWorker(key, userAddr, superAddr string, index, count int, timeout time.Duration) int {
	spec, ok := lookup(key)
	if !ok {
		return 1
	}

	cfg := config.Default()
	userSk, err := socket.Dial(userAddr, cfg.DefaultMTU, cfg.MTUFloor)
	if err != nil {
		return 1
	}
	defer userSk.Close()
	superSk, err := socket.Dial(superAddr, cfg.DefaultMTU, cfg.MTUFloor)
	if err != nil {
		return 1
	}
	defer superSk.Close()

	if err := message.SendFrame(userSk.Conn(), newWorkerStarted(index)); err != nil {
		return 1
	}
	if err := message.SendFrame(superSk.Conn(), newWorkerStarted(index)); err != nil {
		return 1
	}

	// The first frame on the user socket is always our personalized
	// RUN_TEST; everything after that is NOTIFY/USER_MESSAGE relay.
	m, _, err := message.RecvFrame(userSk.Conn())
	if err != nil {
		return 1
	}
	if op, _ := message.ReadOp(m); op != message.OpRunTest {
		return 1
	}

	deadline := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		deadline, cancel = context.WithTimeout(deadline, timeout)
		defer cancel()
	}

	wctx := newWorkerContext(deadline, index, count, userSk, cfg.UserMessageQueueCapacity)

	go watchSuper(superSk, wctx.cancel)
	go dispatchUserFrames(userSk, wctx)

	before := resource.Take()
	start := time.Now()
	resource.Track(true)
	bodyErr := runBodyWithRecover(wctx, spec.Body)
	resource.Track(false)
	elapsed := time.Since(start)
	after := resource.Take()
	delta := resource.Delta(before, after)

	ok := bodyErr == nil
	code := uint32(dterr.CodeUnknown)
	text := ""
	if !ok {
		code = uint32(dterr.Wrap(dterr.CodeAssertion, bodyErr).Code())
		text = bodyErr.Error()
	}

	_ = message.SendFrame(userSk.Conn(), newFinishedTest(index, ok, code, text, elapsed, delta))

	logStatus := "PASS"
	if !ok {
		logStatus = "FAIL"
	}
	dtlog.New().WithTest(key).WithStatus(logStatus).WithField("index", index).WithField("elapsed", elapsed.String()).Info("distributed worker finished")

	if bodyErr != nil {
		return 1
	}
	return 0
}

func runBodyWithRecover(ctx Context, body Body) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cs := stack.Trace(1)
			e := dterr.Newf(dterr.CodeUncaughtPanic, "panic: %v", r)
			e.Add(fmt.Errorf("%s", debug.Stack()))
			e.Add(fmt.Errorf("%s", cs.String()))
			err = e
		}
	}()
	return body(ctx)
}

func watchSuper(sk *socket.Socket, cancel context.CancelFunc) {
	for {
		m, _, err := message.RecvFrame(sk.Conn())
		if err != nil {
			cancel()
			return
		}
		if op, _ := message.ReadOp(m); op == message.OpTerminate {
			cancel()
			return
		}
	}
}

func dispatchUserFrames(sk *socket.Socket, wctx *workerContext) {
	for {
		m, _, err := message.RecvFrame(sk.Conn())
		if err != nil {
			return
		}
		op, err := message.ReadOp(m)
		if err != nil {
			continue
		}

		switch op {
		case message.OpNotify:
			if barrier, berr := readNotify(m); berr == nil {
				wctx.releaseBarrier(barrier)
			}
		case message.OpUserMessage:
			if from, _, payload, uerr := readUserMessage(m); uerr == nil {
				wctx.deliver(from, payload)
			}
		}
	}
}
