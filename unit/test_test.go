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

package unit_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest"
	"github.com/norensa/dtest/resource"
	"github.com/norensa/dtest/unit"
)

var _ = Describe("Test", func() {
	It("passes when every allocation is freed", func() {
		t := &unit.Test{
			ModuleName: "mod",
			TestName:   "balanced",
			Timeout:    time.Second,
			Body: func(ctx context.Context) error {
				h := resource.Alloc(64)
				return resource.Free(h)
			},
		}

		rec := t.Execute()
		Expect(rec.Status).To(Equal(dtest.StatusPass))
		Expect(rec.Snapshot.NetAllocated().Count).To(BeZero())
	})

	It("reports StatusPassWithMemoryLeak when an allocation is never freed", func() {
		t := &unit.Test{
			ModuleName: "mod",
			TestName:   "leaky",
			Timeout:    time.Second,
			Body: func(ctx context.Context) error {
				resource.Alloc(128)
				return nil
			},
		}

		rec := t.Execute()
		Expect(rec.Status).To(Equal(dtest.StatusPassWithMemoryLeak))
		Expect(rec.Err).To(HaveOccurred())
	})

	It("passes a leaking body when IgnoreLeaks is set", func() {
		t := &unit.Test{
			ModuleName:  "mod",
			TestName:    "leaky-ignored",
			Timeout:     time.Second,
			IgnoreLeaks: true,
			Body: func(ctx context.Context) error {
				resource.Alloc(128)
				return nil
			},
		}

		rec := t.Execute()
		Expect(rec.Status).To(Equal(dtest.StatusPass))
	})

	It("reports StatusMemoryLimitExceeded when peak usage exceeds the configured limit", func() {
		t := &unit.Test{
			ModuleName:  "mod",
			TestName:    "over-limit",
			Timeout:     time.Second,
			MemoryLimit: 1,
			Body: func(ctx context.Context) error {
				h := resource.Alloc(4096)
				return resource.Free(h)
			},
		}

		rec := t.Execute()
		Expect(rec.Status).To(Equal(dtest.StatusMemoryLimitExceeded))
	})

	It("reports a fatal sandbox error when freeing an address never allocated through the facade", func() {
		t := &unit.Test{
			ModuleName: "mod",
			TestName:   "bad-free",
			Timeout:    time.Second,
			Body: func(ctx context.Context) error {
				return resource.Free(0xdeadbeef)
			},
		}

		rec := t.Execute()
		Expect(rec.Status).To(Equal(dtest.StatusFail))
	})

	It("times out a body that never returns", func() {
		t := &unit.Test{
			ModuleName: "mod",
			TestName:   "hangs",
			Timeout:    150 * time.Millisecond,
			Body: func(ctx context.Context) error {
				<-ctx.Done()
				<-make(chan struct{})
				return nil
			},
		}

		rec := t.Execute()
		Expect(rec.Status).To(Equal(dtest.StatusTimeout))
	})

	It("converts a panic into a failed record instead of crashing the runner", func() {
		t := &unit.Test{
			ModuleName: "mod",
			TestName:   "panics",
			Timeout:    time.Second,
			Body: func(ctx context.Context) error {
				panic("boom")
			},
		}

		rec := t.Execute()
		Expect(rec.Status).To(Equal(dtest.StatusFail))
		Expect(rec.Err.Error()).To(ContainSubstring("boom"))
	})
})
