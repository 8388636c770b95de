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

package sandbox_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/config"
	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/sandbox"
)

var testCfg = &config.Config{
	TimeoutFloor:          200 * time.Millisecond,
	DefaultMTU:            65536,
	MTUFloor:              64,
	SuperSocketPortOffset: 1,
	PollTimeout:           20 * time.Millisecond,
	KillGrace:             200 * time.Millisecond,
}

var _ = Describe("Run (in-process)", func() {
	It("reports StatusComplete when Body succeeds", func() {
		spec := sandbox.Spec{
			Key: "sandbox-test/ok",
			Body: func(ctx context.Context) error {
				return nil
			},
		}
		sandbox.Register(spec)

		out, err := sandbox.Run(spec, sandbox.Options{
			Fork:    false,
			Timeout: 2 * time.Second,
			Config:  testCfg,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Status).To(Equal(sandbox.StatusComplete))
	})

	It("reports StatusError with the body's message when Body fails", func() {
		spec := sandbox.Spec{
			Key: "sandbox-test/fail",
			Body: func(ctx context.Context) error {
				return fmt.Errorf("assertion failed: expected 1 got 2")
			},
		}
		sandbox.Register(spec)
		out, err := sandbox.Run(spec, sandbox.Options{Fork: false, Timeout: 2 * time.Second, Config: testCfg})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Status).To(Equal(sandbox.StatusError))
		Expect(out.ErrorText).To(ContainSubstring("expected 1 got 2"))
	})

	It("reports CodeUncaughtPanic when Body panics", func() {
		spec := sandbox.Spec{
			Key: "sandbox-test/panic",
			Body: func(ctx context.Context) error {
				panic("boom")
			},
		}
		sandbox.Register(spec)
		out, err := sandbox.Run(spec, sandbox.Options{Fork: false, Timeout: 2 * time.Second, Config: testCfg})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Status).To(Equal(sandbox.StatusError))
		Expect(out.ErrorCode).To(Equal(dterr.CodeUncaughtPanic))
		Expect(out.ErrorText).To(ContainSubstring("boom"))
	})

	It("round-trips a Pack/Unpack payload", func() {
		var unpacked string
		spec := sandbox.Spec{
			Key: "sandbox-test/pack",
			Body: func(ctx context.Context) error {
				return nil
			},
			Pack: func() *message.Message {
				m := message.New()
				m.WriteString("payload-value")
				return m
			},
			Unpack: func(m *message.Message) error {
				s, err := m.ReadString()
				if err != nil {
					return err
				}
				unpacked = s
				return nil
			},
		}
		sandbox.Register(spec)
		out, err := sandbox.Run(spec, sandbox.Options{Fork: false, Timeout: 2 * time.Second, Config: testCfg})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Status).To(Equal(sandbox.StatusComplete))
		Expect(unpacked).To(Equal("payload-value"))
	})

	It("reports a sandbox-fatal StatusError when no spec is registered under the key", func() {
		spec := sandbox.Spec{Key: "sandbox-test/never-registered-" + fmt.Sprint(time.Now().UnixNano())}
		out, err := sandbox.Run(spec, sandbox.Options{Fork: false, Timeout: testCfg.TimeoutFloor, Config: testCfg})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Status).To(Equal(sandbox.StatusError))
		Expect(out.ErrorCode).To(Equal(dterr.CodeSandboxFatal))
	})
})

var _ = Describe("Status.String", func() {
	It("names every status", func() {
		Expect(sandbox.StatusComplete.String()).To(Equal("COMPLETE"))
		Expect(sandbox.StatusError.String()).To(Equal("ERROR"))
		Expect(sandbox.StatusTimeout.String()).To(Equal("TIMEOUT"))
		Expect(sandbox.StatusCrashed.String()).To(Equal("CRASHED"))
		Expect(sandbox.Status(99).String()).To(Equal("UNKNOWN"))
	})
})
