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

package resource

import (
	"strings"
	"sync"

	"github.com/norensa/dtest/stack"
)

// trackingException is this implementation's analogue of the original
// tracker's {stack-depth, symbol, resolved address range} suppression
// descriptor. Go has no dynamic-linker symbol table to pin return addresses
// against, so the depth/symbol pair is matched by resolved function name
// instead of by resolved address range — the platform-trait degradation
// anticipated for systems without interposition.
type trackingException struct {
	depth int
	match func(funcName string) bool
}

func prefixMatch(prefix string) func(string) bool {
	return func(name string) bool { return strings.HasPrefix(name, prefix) }
}

// exceptions names Go-runtime-internal call sites that legitimately
// allocate asymmetrically relative to the test body: goroutine stack
// growth (runtime.morestack, runtime.newstack), the scheduler spinning up a
// new goroutine (runtime.newproc), and work the runtime runs on the system
// stack (runtime.systemstack).
var exceptions []trackingException

var suppressOnce sync.Once

func initSuppression() {
	suppressOnce.Do(func() {
		exceptions = []trackingException{
			{depth: 0, match: prefixMatch("runtime.morestack")},
			{depth: 0, match: prefixMatch("runtime.newstack")},
			{depth: 0, match: prefixMatch("runtime.newproc")},
			{depth: 0, match: prefixMatch("runtime.systemstack")},
		}
	})
}

// suppressed reports whether the call captured in cs matches a known
// runtime-internal allocation site and should not be counted against the
// test under measurement.
func suppressed(cs stack.CallStack) bool {
	initSuppression()
	for _, ex := range exceptions {
		name := cs.FuncNameAt(ex.depth)
		if name == "" {
			continue
		}
		if ex.match(name) {
			return true
		}
	}
	return false
}
