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

package socket_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/socket"
)

var _ = Describe("Socket", func() {
	var ln *socket.Listener

	BeforeEach(func() {
		var err error
		ln, err = socket.Listen("127.0.0.1:0", 4, 65536, 64)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = ln.Close()
	})

	It("round-trips data sent from a dialed socket to an accepted one", func() {
		client, err := socket.Dial(ln.Addr().String(), 65536, 64)
		Expect(err).NotTo(HaveOccurred())
		defer client.Close()

		server, err := ln.Accept()
		Expect(err).NotTo(HaveOccurred())

		payload := []byte("hello over tcp")
		Expect(client.Send(payload)).To(Succeed())

		got, err := server.Recv(len(payload), false)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(payload))
	})

	It("Recv returns ErrWouldBlock when nothing arrives before the deadline", func() {
		client, err := socket.Dial(ln.Addr().String(), 65536, 64)
		Expect(err).NotTo(HaveOccurred())
		defer client.Close()

		server, err := ln.Accept()
		Expect(err).NotTo(HaveOccurred())

		_, err = server.Recv(4, true)
		Expect(err).To(MatchError(socket.ErrWouldBlock))
	})

	Describe("PollOrAccept", func() {
		It("reports a timeout as ok=false with no error", func() {
			sk, isNew, ok, err := ln.PollOrAccept(50 * time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(isNew).To(BeFalse())
			Expect(sk).To(BeNil())
		})

		It("reports a new connection as isNew=true", func() {
			client, err := socket.Dial(ln.Addr().String(), 65536, 64)
			Expect(err).NotTo(HaveOccurred())
			defer client.Close()

			Eventually(func() bool {
				sk, isNew, ok, perr := ln.PollOrAccept(100 * time.Millisecond)
				if ok && isNew && perr == nil {
					Expect(sk).NotTo(BeNil())
					return true
				}
				return false
			}, 2*time.Second).Should(BeTrue())
		})

		It("reports an already-accepted connection becoming readable as isNew=false", func() {
			client, err := socket.Dial(ln.Addr().String(), 65536, 64)
			Expect(err).NotTo(HaveOccurred())
			defer client.Close()

			server, err := ln.Accept()
			Expect(err).NotTo(HaveOccurred())
			Expect(server).NotTo(BeNil())

			Expect(client.Send([]byte("ping"))).To(Succeed())

			Eventually(func() bool {
				sk, isNew, ok, perr := ln.PollOrAccept(100 * time.Millisecond)
				return ok && !isNew && perr == nil && sk == server
			}, 2*time.Second).Should(BeTrue())
		})
	})
})
