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

package dtest_test

import (
	"encoding/json"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest"
	"github.com/norensa/dtest/resource"
)

var _ = Describe("Record", func() {
	Describe("Key", func() {
		It("joins module and name", func() {
			r := dtest.Record{Module: "mod", Name: "name"}
			Expect(r.Key()).To(Equal("mod/name"))
		})
	})

	Describe("Merge", func() {
		It("keeps Pass when both sides pass", func() {
			a := dtest.Record{Status: dtest.StatusPass, Duration: time.Second}
			b := dtest.Record{Status: dtest.StatusPass, Duration: 2 * time.Second}
			m := a.Merge(b)
			Expect(m.Status).To(Equal(dtest.StatusPass))
			Expect(m.Duration).To(Equal(2 * time.Second))
		})

		It("lets a Fail override a Pass", func() {
			a := dtest.Record{Status: dtest.StatusPass}
			b := dtest.Record{Status: dtest.StatusFail, Err: fmt.Errorf("boom")}
			m := a.Merge(b)
			Expect(m.Status).To(Equal(dtest.StatusFail))
			Expect(m.Err).To(MatchError("boom"))
		})

		It("never lets a lower-ranked status override a higher one", func() {
			a := dtest.Record{Status: dtest.StatusCrash}
			b := dtest.Record{Status: dtest.StatusFail}
			m := a.Merge(b)
			Expect(m.Status).To(Equal(dtest.StatusCrash))
		})

		It("ranks Timeout above Fail and Crash above Timeout", func() {
			m1 := dtest.Record{Status: dtest.StatusFail}.Merge(dtest.Record{Status: dtest.StatusTimeout})
			Expect(m1.Status).To(Equal(dtest.StatusTimeout))
			m2 := m1.Merge(dtest.Record{Status: dtest.StatusCrash})
			Expect(m2.Status).To(Equal(dtest.StatusCrash))
		})

		It("sums additive resource quantities and maxes the high-water mark", func() {
			a := dtest.Record{
				Status: dtest.StatusPass,
				Snapshot: resource.Snapshot{
					MemoryAllocate: resource.Quantity{Size: 100, Count: 1},
					MemoryMax:      resource.Quantity{Size: 500, Count: 5},
				},
			}
			b := dtest.Record{
				Status: dtest.StatusPass,
				Snapshot: resource.Snapshot{
					MemoryAllocate: resource.Quantity{Size: 50, Count: 1},
					MemoryMax:      resource.Quantity{Size: 900, Count: 3},
				},
			}
			m := a.Merge(b)
			Expect(m.Snapshot.MemoryAllocate).To(Equal(resource.Quantity{Size: 150, Count: 2}))
			Expect(m.Snapshot.MemoryMax).To(Equal(resource.Quantity{Size: 900, Count: 5}))
		})
	})

	Describe("JSON marshaling", func() {
		It("renders Status as its string form", func() {
			r := dtest.Record{Module: "m", Name: "n", Status: dtest.StatusFail}
			b, err := json.Marshal(r)
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(b, &decoded)).To(Succeed())
			Expect(decoded["status"]).To(Equal("FAIL"))
		})

		It("populates error text from Err", func() {
			r := dtest.Record{Status: dtest.StatusFail, Err: fmt.Errorf("bad thing")}
			b, err := json.Marshal(r)
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(b, &decoded)).To(Succeed())
			Expect(decoded["error"]).To(Equal("bad thing"))
		})
	})

	Describe("Status.String", func() {
		It("names every status", func() {
			Expect(dtest.StatusPass.String()).To(Equal("PASS"))
			Expect(dtest.StatusCrash.String()).To(Equal("CRASH"))
			Expect(dtest.Status(99).String()).To(Equal("UNKNOWN"))
		})
	})
})
