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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/resource"
)

var _ = Describe("Alloc/Free facade", func() {
	BeforeEach(func() {
		resource.Clear()
		resource.Track(true)
	})

	AfterEach(func() {
		resource.Track(false)
		resource.Clear()
	})

	It("counts an Alloc not yet Freed as net-allocated", func() {
		before := resource.Take()
		h := resource.Alloc(128)
		after := resource.Take()

		delta := resource.Delta(before, after)
		Expect(delta.NetAllocated().Size).To(Equal(uint64(128)))
		Expect(delta.NetAllocated().Count).To(Equal(uint64(1)))
		Expect(resource.Free(h)).To(Succeed())
	})

	It("nets to zero once every Alloc is Freed", func() {
		before := resource.Take()
		h1 := resource.Alloc(64)
		h2 := resource.Alloc(256)
		Expect(resource.Free(h1)).To(Succeed())
		Expect(resource.Free(h2)).To(Succeed())
		after := resource.Take()

		delta := resource.Delta(before, after)
		Expect(delta.NetAllocated().Size).To(Equal(uint64(0)))
		Expect(delta.NetAllocated().Count).To(Equal(uint64(0)))
	})

	It("raises a fatal error when freeing an unknown handle", func() {
		err := resource.Free(999999999)
		Expect(err).To(HaveOccurred())
	})

	It("Realloc invalidates the old handle and tracks the new size", func() {
		before := resource.Take()
		h1 := resource.Alloc(64)
		h2, err := resource.Realloc(h1, 512)
		Expect(err).NotTo(HaveOccurred())

		Expect(resource.Free(h1)).To(HaveOccurred())
		Expect(resource.Free(h2)).To(Succeed())

		after := resource.Take()
		delta := resource.Delta(before, after)
		Expect(delta.NetAllocated().Size).To(Equal(uint64(0)))
	})

	It("does not track when Track(false)", func() {
		resource.Track(false)
		before := resource.Take()
		resource.Alloc(64)
		after := resource.Take()
		Expect(resource.Delta(before, after).NetAllocated().Size).To(Equal(uint64(0)))
		resource.Track(true)
	})

	Describe("Mmap/Munmap", func() {
		It("tracks a full unmap of a mapping as fully freed", func() {
			before := resource.Take()
			h := resource.Mmap(4096)
			Expect(resource.Munmap(h, 4096)).To(Succeed())
			after := resource.Take()
			Expect(resource.Delta(before, after).NetAllocated().Size).To(Equal(uint64(0)))
		})

		It("supports partial unmap of a larger mapping", func() {
			before := resource.Take()
			h := resource.Mmap(8192)
			Expect(resource.Munmap(h, 4096)).To(Succeed())
			after := resource.Take()
			Expect(resource.Delta(before, after).NetAllocated().Size).To(Equal(uint64(4096)))
			Expect(resource.Munmap(h+4096, 4096)).To(Succeed())
		})

		It("raises a fatal error unmapping an untracked range", func() {
			err := resource.Munmap(123456, 4096)
			Expect(err).To(HaveOccurred())
		})
	})
})
