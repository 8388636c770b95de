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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/resource"
)

var _ = Describe("wire codec", func() {
	It("round-trips RUN_TEST", func() {
		m := newRunTest("mod/name", 2, 5)
		key, index, count, err := readRunTest(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("mod/name"))
		Expect(index).To(Equal(2))
		Expect(count).To(Equal(5))
	})

	It("round-trips a successful FINISHED_TEST", func() {
		snap := resource.Snapshot{
			MemoryAllocate: resource.Quantity{Size: 128, Count: 2},
			NetworkSend:    resource.Quantity{Size: 64, Count: 1},
		}
		m := newFinishedTest(3, true, 0, "", 42*time.Millisecond, snap)

		idx, ok, code, text, elapsed, got, err := readFinishedTest(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(Equal(3))
		Expect(ok).To(BeTrue())
		Expect(code).To(BeZero())
		Expect(text).To(BeEmpty())
		Expect(elapsed).To(Equal(42 * time.Millisecond))
		Expect(got).To(Equal(snap))
	})

	It("round-trips a failing FINISHED_TEST without confusing it for success", func() {
		m := newFinishedTest(1, false, uint32(dterr.CodeAssertion), "assertion failed", time.Second, resource.Snapshot{})

		idx, ok, _, text, _, _, err := readFinishedTest(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(Equal(1))
		Expect(ok).To(BeFalse())
		Expect(text).To(Equal("assertion failed"))
	})

	It("round-trips USER_MESSAGE", func() {
		m := newUserMessage(0, 1, []byte("hello"))
		from, to, payload, err := readUserMessage(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(from).To(Equal(0))
		Expect(to).To(Equal(1))
		Expect(payload).To(Equal([]byte("hello")))
	})

	It("round-trips USER_MESSAGE addressed to the driver sentinel index", func() {
		m := newUserMessage(driverIndex, 1, []byte("hi"))
		from, to, payload, err := readUserMessage(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(from).To(Equal(driverIndex))
		Expect(to).To(Equal(1))
		Expect(payload).To(Equal([]byte("hi")))

		m2 := newUserMessage(1, driverIndex, []byte("reply"))
		from2, to2, _, err2 := readUserMessage(m2)
		Expect(err2).NotTo(HaveOccurred())
		Expect(from2).To(Equal(1))
		Expect(to2).To(Equal(driverIndex))
	})

	It("round-trips NOTIFY", func() {
		m := newNotify("barrier-a")
		barrier, err := readNotify(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(barrier).To(Equal("barrier-a"))
	})
})

var _ = Describe("offsetAddr", func() {
	It("adds the offset to the port while keeping the host", func() {
		addr, err := offsetAddr("127.0.0.1:5000", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(addr).To(Equal("127.0.0.1:5001"))
	})

	It("rejects a malformed address", func() {
		_, err := offsetAddr("not-an-addr", 1)
		Expect(err).To(HaveOccurred())
	})
})

