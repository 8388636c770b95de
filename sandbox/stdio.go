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
	"io"
	"os"
)

// stdioCapture redirects os.Stdout/os.Stderr to pipes for the duration of an
// in-process (non-forked) run, restoring the originals on Restore. Forked
// runs never need this: exec.Cmd captures a child's stdio directly without
// touching the parent's file descriptors.
type stdioCapture struct {
	origOut, origErr *os.File
	outW, errW       *os.File
	outBuf, errBuf   bytes.Buffer
	done             chan struct{}
}

func captureStdio() (*stdioCapture, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = outR.Close()
		_ = outW.Close()
		return nil, err
	}

	c := &stdioCapture{
		origOut: os.Stdout,
		origErr: os.Stderr,
		outW:    outW,
		errW:    errW,
		done:    make(chan struct{}),
	}
	os.Stdout = outW
	os.Stderr = errW

	go func() {
		defer close(c.done)
		done := make(chan struct{})
		go func() {
			_, _ = io.Copy(&c.outBuf, outR)
			close(done)
		}()
		_, _ = io.Copy(&c.errBuf, errR)
		<-done
	}()

	return c, nil
}

// Restore puts back the original stdio handles and returns everything
// written while captured. It must be called exactly once.
func (c *stdioCapture) Restore() (stdout, stderr []byte) {
	os.Stdout = c.origOut
	os.Stderr = c.origErr
	_ = c.outW.Close()
	_ = c.errW.Close()
	<-c.done
	return c.outBuf.Bytes(), c.errBuf.Bytes()
}
