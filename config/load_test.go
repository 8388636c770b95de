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

package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/norensa/dtest/config"
)

var _ = Describe("Default", func() {
	It("returns the engine's built-in values", func() {
		c := config.Default()
		Expect(c.TimeoutFloor).To(Equal(2 * time.Second))
		Expect(c.DefaultMTU).To(Equal(65536))
		Expect(c.MTUFloor).To(Equal(64))
		Expect(c.SuperSocketPortOffset).To(Equal(1))
		Expect(c.UserMessageQueueCapacity).To(Equal(256))
		Expect(c.PollTimeout).To(Equal(200 * time.Millisecond))
		Expect(c.KillGrace).To(Equal(500 * time.Millisecond))
	})
})

var _ = Describe("Load", func() {
	It("matches Default when given no file and no env overrides", func() {
		c, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(config.Default()))
	})

	It("layers a config file's values over the defaults", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "dtest.yaml")
		Expect(os.WriteFile(path, []byte("mtu_floor: 128\nuser_message_queue_capacity: 1024\n"), 0o644)).To(Succeed())

		c, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.MTUFloor).To(Equal(128))
		Expect(c.UserMessageQueueCapacity).To(Equal(1024))
		Expect(c.DefaultMTU).To(Equal(config.Default().DefaultMTU))
	})

	It("layers environment variables over the defaults", func() {
		Expect(os.Setenv("DTEST_MTU_FLOOR", "256")).To(Succeed())
		defer os.Unsetenv("DTEST_MTU_FLOOR")

		c, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.MTUFloor).To(Equal(256))
	})

	It("returns an error for an unreadable config file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
