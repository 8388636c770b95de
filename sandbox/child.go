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

package sandbox

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/resource"
	"github.com/norensa/dtest/socket"
	"github.com/norensa/dtest/stack"
)

const (
	envKey  = "DTEST_SANDBOX_KEY"
	envAddr = "DTEST_SANDBOX_ADDR"
)

// MaybeRunAsChild checks whether this process was re-exec'd as a sandbox
// child and, if so, runs the registered Spec, reports the outcome over the
// loopback socket named by DTEST_SANDBOX_ADDR and terminates the process.
// It never returns when it handled child mode. Host binaries must call this
// as the very first statement of main, before the normal scheduler starts,
// since a child process is otherwise indistinguishable from a fresh run of
// the whole test binary.
func MaybeRunAsChild() {
	key := os.Getenv(envKey)
	if key == "" {
		return
	}
	addr := os.Getenv(envAddr)

	code := runChildBody(context.Background(), key, addr, nil)
	os.Exit(code)
}

// runChildBody executes the Spec registered under key, connects to addr (a
// TCP loopback address) and sends exactly one terminal frame: COMPLETE on
// success, ERROR otherwise. readySignal, when non-nil, is closed once the
// dial succeeds; the in-process (non-forked) path passes one but does not
// wait on it. ctx is only observed cooperatively by
// Body; a forked child ignores it in favor of the parent's SIGKILL on
// timeout, since a re-exec'd process has no other caller to cancel it.
func runChildBody(ctx context.Context, key, addr string, readySignal chan<- struct{}) (exitCode int) {
	spec, ok := lookup(key)
	if !ok {
		reportInfraError(addr, fmt.Sprintf("sandbox: no spec registered for key %q", key))
		return 1
	}

	sk, err := socket.Dial(addr, 65536, 64)
	if err != nil {
		return 1
	}
	defer sk.Close()
	if readySignal != nil {
		close(readySignal)
	}

	// Tracking is left disabled until Spec.Body opts in (typically only
	// around its measured phase) — the sandbox layer has no opinion on
	// which part of a test body counts against its resource budget.
	resource.Track(false)
	defer resource.Track(false)

	bodyErr := runWithRecover(ctx, spec.Body)

	resource.Track(false)

	var m *message.Message
	if bodyErr == nil {
		m = message.NewOp(message.OpComplete)
		if spec.Pack != nil {
			payload := spec.Pack()
			if payload != nil {
				m.WriteBytes(payload.Bytes())
			}
		}
	} else {
		m = message.NewOp(message.OpError)
		m.WriteUint32(uint32(dterr.Wrap(dterr.CodeUnknown, bodyErr).Code()))
		m.WriteString(bodyErr.Error())
		exitCode = 1
	}

	if err := message.SendFrame(sk.Conn(), m); err != nil {
		return 1
	}
	return exitCode
}

// runWithRecover invokes body, converting a panic into a dterr.Error tagged
// CodeUncaughtPanic with the recovered value and a captured stack trace as
// context, matching the original's fault-to-result translation for signals
// and uncaught exceptions (Go has no SIGSEGV-as-exception equivalent to
// trap from within the same process, so recover() covers the panic half and
// the parent's SIGKILL/exit-status half covers true faults).
func runWithRecover(ctx context.Context, body func(ctx context.Context) error) (err error) {
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

func reportInfraError(addr, text string) {
	if addr == "" {
		return
	}
	sk, err := socket.Dial(addr, 65536, 64)
	if err != nil {
		return
	}
	defer sk.Close()
	m := message.NewOp(message.OpError)
	m.WriteUint32(uint32(dterr.CodeSandboxFatal))
	m.WriteString(text)
	_ = message.SendFrame(sk.Conn(), m)
}
