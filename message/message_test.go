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

package message_test

import (
	"encoding/binary"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/message"
)

var _ = Describe("Message", func() {
	It("round-trips scalar fields in write order", func() {
		m := message.New()
		m.WriteUint8(7)
		m.WriteUint32(12345)
		m.WriteUint64(9876543210)

		r := message.Decode(m.Bytes()[8:])
		u8, err := r.ReadUint8()
		Expect(err).NotTo(HaveOccurred())
		Expect(u8).To(Equal(uint8(7)))

		u32, err := r.ReadUint32()
		Expect(err).NotTo(HaveOccurred())
		Expect(u32).To(Equal(uint32(12345)))

		u64, err := r.ReadUint64()
		Expect(err).NotTo(HaveOccurred())
		Expect(u64).To(Equal(uint64(9876543210)))

		Expect(r.Remaining()).To(Equal(0))
	})

	It("round-trips length-prefixed bytes and strings", func() {
		m := message.New()
		m.WriteBytes([]byte{1, 2, 3})
		m.WriteString("hello")

		r := message.Decode(m.Bytes()[8:])
		b, err := r.ReadBytes()
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal([]byte{1, 2, 3}))

		s, err := r.ReadString()
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal("hello"))
	})

	It("returns ErrShortRead past the end of the payload", func() {
		m := message.New()
		m.WriteUint8(1)
		r := message.Decode(m.Bytes()[8:])
		_, err := r.ReadUint8()
		Expect(err).NotTo(HaveOccurred())
		_, err = r.ReadUint8()
		Expect(err).To(MatchError(message.ErrShortRead))
	})

	It("patches the length header to match the current buffer size", func() {
		m := message.New()
		m.WriteString("a longer payload than the header alone")
		buf := m.Bytes()
		Expect(len(buf)).To(BeNumerically(">", 8))
		Expect(binary.LittleEndian.Uint64(buf[:8])).To(Equal(uint64(len(buf))))
	})

	It("Reset clears the cursor and buffer back to header-only", func() {
		m := message.New()
		m.WriteUint64(42)
		m.Reset()
		buf := m.Bytes()
		Expect(len(buf)).To(Equal(8))
	})

	Describe("opcode framing", func() {
		It("round-trips an opcode as the leading field", func() {
			m := message.NewOp(message.OpRunTest)
			r := message.Decode(m.Bytes()[8:])
			op, err := message.ReadOp(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(op).To(Equal(message.OpRunTest))
		})

		It("names every opcode", func() {
			Expect(message.OpWorkerStarted.String()).To(Equal("WORKER_STARTED"))
			Expect(message.OpFinishedTest.String()).To(Equal("FINISHED_TEST"))
			Expect(message.Opcode(999).String()).To(Equal("UNKNOWN"))
		})
	})

	Describe("SendFrame/RecvFrame over a real connection", func() {
		It("delivers a frame end to end", func() {
			a, b := net.Pipe()
			defer a.Close()
			defer b.Close()

			m := message.NewOp(message.OpNotify)
			m.WriteString("barrier-1")

			errCh := make(chan error, 1)
			go func() { errCh <- message.SendFrame(a, m) }()

			got, partial, err := message.RecvFrame(b)
			Expect(err).NotTo(HaveOccurred())
			Expect(partial).To(BeFalse())
			Expect(<-errCh).NotTo(HaveOccurred())

			op, err := message.ReadOp(got)
			Expect(err).NotTo(HaveOccurred())
			Expect(op).To(Equal(message.OpNotify))
			s, err := got.ReadString()
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal("barrier-1"))
		})

		It("reports a closed connection as a non-partial error", func() {
			a, b := net.Pipe()
			_ = a.Close()
			_, partial, err := message.RecvFrame(b)
			Expect(err).To(HaveOccurred())
			Expect(partial).To(BeFalse())
		})
	})
})
