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
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/norensa/dtest/config"
	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/dtlog"
	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/socket"
)

// Options configures one Run call.
type Options struct {
	// Fork, when true, isolates Spec.Body in a re-exec'd child process.
	// When false, Body runs on a goroutine in the current process — faster,
	// but the resource tracker singleton and a runaway Body are shared with
	// the caller, and a timeout cannot be enforced preemptively (only
	// cooperatively, via ctx.Done()).
	Fork bool

	// Timeout bounds how long Run waits for a terminal frame before
	// reporting StatusTimeout. Config.TimeoutFloor is enforced as a lower
	// bound.
	Timeout time.Duration

	// Input is delivered on the child's stdin. Only honored in Fork mode.
	Input []byte

	Config *config.Config
}

// Run executes spec according to opts and blocks until it completes, times
// out, or crashes.
func Run(spec Spec, opts Options) (Outcome, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	timeout := opts.Timeout
	if timeout < cfg.TimeoutFloor {
		timeout = cfg.TimeoutFloor
	}

	ln, err := socket.Listen("127.0.0.1:0", 1, cfg.DefaultMTU, cfg.MTUFloor)
	if err != nil {
		return Outcome{Status: StatusCrashed, ErrorText: err.Error()}, err
	}
	defer ln.Close()

	if opts.Fork {
		return runForked(spec, ln, timeout, cfg, opts.Input)
	}
	return runInProcess(spec, ln, timeout, cfg)
}

func runForked(spec Spec, ln *socket.Listener, timeout time.Duration, cfg *config.Config, input []byte) (Outcome, error) {
	exe, err := os.Executable()
	if err != nil {
		return Outcome{Status: StatusCrashed, ErrorText: err.Error()}, err
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(),
		envKey+"="+spec.Key,
		envAddr+"="+ln.Addr().String(),
	)
	cmd.Stdin = bytes.NewReader(input)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return Outcome{Status: StatusCrashed, ErrorText: err.Error()}, err
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	out, terminal := awaitTerminal(spec, ln, timeout, cfg)

	switch {
	case terminal != nil:
		<-drainWait(cmd, waitDone, cfg.KillGrace)
	default:
		_ = cmd.Process.Kill()
		<-waitDone
		out.Status = StatusTimeout
		out.ErrorCode = dterr.CodeTimeout
		out.ErrorText = fmt.Sprintf("sandbox: %s exceeded", timeout)
		dtlog.New().WithTest(spec.Key).WithStatus("TIMEOUT").WithField("timeout", timeout.String()).Warn("forked sandbox child killed after exceeding its timeout")
	}

	out.Stdout = outBuf.Bytes()
	out.Stderr = errBuf.Bytes()
	return out, nil
}

// drainWait waits up to grace for the child to exit on its own after a
// terminal frame was already received, escalating to a kill if it overstays
// — a child that finished its measured work but is slow to unwind (e.g.
// flushing buffers) shouldn't be killed immediately, but it also shouldn't
// be allowed to linger indefinitely.
func drainWait(cmd *exec.Cmd, waitDone <-chan error, grace time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-waitDone:
		case <-time.After(grace):
			_ = cmd.Process.Kill()
			<-waitDone
		}
	}()
	return done
}

func runInProcess(spec Spec, ln *socket.Listener, timeout time.Duration, cfg *config.Config) (Outcome, error) {
	capture, err := captureStdio()
	if err != nil {
		return Outcome{Status: StatusCrashed, ErrorText: err.Error()}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ready := make(chan struct{})
	go runChildBody(ctx, spec.Key, ln.Addr().String(), ready)

	out, terminal := awaitTerminal(spec, ln, timeout, cfg)
	if terminal == nil {
		out.Status = StatusTimeout
		out.ErrorCode = dterr.CodeTimeout
		out.ErrorText = fmt.Sprintf("sandbox: %s exceeded", timeout)
		dtlog.New().WithTest(spec.Key).WithStatus("TIMEOUT").WithField("timeout", timeout.String()).Warn("in-process sandbox body exceeded its timeout; it may still be running cooperatively")
	}

	stdout, stderr := capture.Restore()
	out.Stdout = stdout
	out.Stderr = stderr
	return out, nil
}

// awaitTerminal polls ln until a COMPLETE or ERROR frame arrives or timeout
// elapses. terminal is non-nil once a frame was actually received.
func awaitTerminal(spec Spec, ln *socket.Listener, timeout time.Duration, cfg *config.Config) (out Outcome, terminal *message.Message) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		wait := cfg.PollTimeout
		if remaining < wait {
			wait = remaining
		}

		sk, isNew, ok, err := ln.PollOrAccept(wait)
		if err != nil || !ok {
			continue
		}
		if isNew {
			continue
		}

		m, partial, ferr := message.RecvFrame(sk.Conn())
		if ferr != nil {
			if partial {
				continue
			}
			ln.Dispose(sk)
			continue
		}

		op, operr := message.ReadOp(m)
		if operr != nil {
			continue
		}

		switch op {
		case message.OpComplete:
			out.Status = StatusComplete
			if spec.Unpack != nil {
				if payload, perr := m.ReadBytes(); perr == nil {
					if uerr := spec.Unpack(message.Decode(payload)); uerr != nil {
						out.Status = StatusError
						out.ErrorText = uerr.Error()
					}
				}
			}
			return out, m
		case message.OpError:
			out.Status = StatusError
			code, cerr := m.ReadUint32()
			if cerr == nil {
				out.ErrorCode = dterr.CodeError(code)
			}
			if text, terr := m.ReadString(); terr == nil {
				out.ErrorText = text
			} else {
				out.ErrorText = fmt.Sprintf("sandbox: malformed error frame: %v", terr)
			}
			return out, m
		}
	}

	return out, nil
}
