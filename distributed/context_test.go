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
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/config"
	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/socket"
)

var _ = Describe("workerContext", func() {
	var (
		wctx     *workerContext
		peerConn net.Conn
	)

	BeforeEach(func() {
		local, peer := net.Pipe()
		peerConn = peer
		sk := socket.New(local, 65536, 64)
		wctx = newWorkerContext(context.Background(), 0, 2, sk, 4)
	})

	It("unblocks Wait once releaseBarrier is called", func() {
		go func() {
			// Drain whatever Notify() sends so the pipe doesn't block.
			_, _, _ = message.RecvFrame(peerConn)
		}()

		done := make(chan error, 1)
		go func() { done <- wctx.Wait("checkpoint") }()

		wctx.Notify("checkpoint")

		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		wctx.releaseBarrier("checkpoint")
		Eventually(done, time.Second).Should(Receive(BeNil()))
	})

	It("delivers a message to Recv", func() {
		wctx.deliver(1, []byte("hi"))
		payload, from, err := wctx.Recv()
		Expect(err).NotTo(HaveOccurred())
		Expect(from).To(Equal(1))
		Expect(payload).To(Equal([]byte("hi")))
	})

	It("returns ErrClosed from Wait/Recv once the context is cancelled", func() {
		wctx.cancel()

		_, _, err := wctx.Recv()
		Expect(err).To(Equal(ErrClosed))

		err = wctx.Wait("never-released")
		Expect(err).To(Equal(ErrClosed))
	})
})

var _ = Describe("driverContext", func() {
	var (
		driver *Driver
		dctx   *driverContext
	)

	BeforeEach(func() {
		cfg := config.Default()
		var err error
		driver, err = NewDriver("mod/drivercontext", 1, cfg)
		Expect(err).NotTo(HaveOccurred())
		dctx = newDriverContext(context.Background(), 1, driver, 4)
		driver.driverCtx = dctx
	})

	It("reports index -1", func() {
		Expect(dctx.Index()).To(Equal(-1))
	})

	It("unblocks Wait once the driver releases the barrier", func() {
		done := make(chan error, 1)
		go func() { done <- dctx.Wait("checkpoint") }()

		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		driver.releaseDriverBarrier("checkpoint")
		Eventually(done, time.Second).Should(Receive(BeNil()))
	})

	It("delivers a message to Recv", func() {
		dctx.deliver(0, []byte("hi"))
		payload, from, err := dctx.Recv()
		Expect(err).NotTo(HaveOccurred())
		Expect(from).To(Equal(0))
		Expect(payload).To(Equal([]byte("hi")))
	})

	It("returns ErrClosed from Wait/Recv once the context is cancelled", func() {
		dctx.cancel()

		_, _, err := dctx.Recv()
		Expect(err).To(Equal(ErrClosed))

		err = dctx.Wait("never-released")
		Expect(err).To(Equal(ErrClosed))
	})
})
