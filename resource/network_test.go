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

package resource_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/resource"
)

var _ = Describe("WrapConn", func() {
	BeforeEach(func() {
		resource.Clear()
		resource.Track(true)
	})

	AfterEach(func() {
		resource.Track(false)
		resource.Clear()
		resource.SetFaultyNetwork(resource.FaultyNetworkConfig{})
	})

	It("counts bytes written and read through the decorated conn", func() {
		a, b := net.Pipe()
		defer a.Close()
		defer b.Close()

		wa := resource.WrapConn(a)

		before := resource.Take()
		done := make(chan struct{})
		go func() {
			defer close(done)
			buf := make([]byte, 5)
			_, _ = b.Read(buf)
		}()
		_, err := wa.Write([]byte("hello"))
		Expect(err).NotTo(HaveOccurred())
		<-done

		after := resource.Take()
		delta := resource.Delta(before, after)
		Expect(delta.NetworkSend.Size).To(Equal(uint64(5)))
		Expect(delta.NetworkSend.Count).To(Equal(uint64(1)))
	})

	It("never drops a TCP-backed connection regardless of fault config", func() {
		resource.SetFaultyNetwork(resource.FaultyNetworkConfig{Chance: 0, HoleDuration: time.Second})

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()

		serverConn := make(chan net.Conn, 1)
		go func() {
			c, _ := ln.Accept()
			serverConn <- c
		}()

		client, err := net.Dial("tcp", ln.Addr().String())
		Expect(err).NotTo(HaveOccurred())
		defer client.Close()
		wrapped := resource.WrapConn(client)

		server := <-serverConn
		defer server.Close()

		n, err := wrapped.Write([]byte("ping"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))
	})
})
