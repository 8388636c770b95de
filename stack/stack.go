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

// Package stack captures and renders Go call stacks on demand, used to
// annotate tracked allocations and to report fatal sandbox conditions and
// recovered panics.
package stack

import (
	"fmt"
	"runtime"
	"strings"
)

// maxFrames mirrors the original implementation's fixed-depth capture; 32
// frames is enough to reach past any reasonable wrapper depth into test
// code without unbounded cost on every allocation.
const maxFrames = 32

// CallStack is an immutable capture of program counters. The zero value is
// an empty stack. Copying a CallStack duplicates its backing slice.
type CallStack struct {
	pcs []uintptr
}

// Trace captures the calling goroutine's stack, skipping `skip` additional
// frames beyond the call to Trace itself.
func Trace(skip int) CallStack {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(2+skip, pcs)
	cp := make([]uintptr, n)
	copy(cp, pcs[:n])
	return CallStack{pcs: cp}
}

// Len returns the number of captured frames.
func (c CallStack) Len() int {
	return len(c.pcs)
}

// PC returns the raw program counter at the given depth (0 = innermost),
// or 0 if depth is out of range.
func (c CallStack) PC(depth int) uintptr {
	if depth < 0 || depth >= len(c.pcs) {
		return 0
	}
	return c.pcs[depth]
}

// FuncNameAt returns the resolved function name of the frame at depth, or
// "" if it cannot be resolved or depth is out of range.
func (c CallStack) FuncNameAt(depth int) string {
	pc := c.PC(depth)
	if pc == 0 {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	return fn.Name()
}

// Frame is one rendered line of a CallStack.
type Frame struct {
	Index    int
	PC       uintptr
	Function string
	File     string
	Line     int
	Offset   int
}

// Frames lazily resolves every captured frame into a renderable Frame.
func (c CallStack) Frames() []Frame {
	if len(c.pcs) == 0 {
		return nil
	}
	out := make([]Frame, 0, len(c.pcs))
	frames := runtime.CallersFrames(c.pcs)
	idx := 0
	for {
		f, more := frames.Next()
		fn := runtime.FuncForPC(f.PC)
		offset := 0
		if fn != nil {
			offset = int(f.PC - fn.Entry())
		}
		out = append(out, Frame{
			Index:    idx,
			PC:       f.PC,
			Function: f.Function,
			File:     f.File,
			Line:     f.Line,
			Offset:   offset,
		})
		idx++
		if !more {
			break
		}
	}
	return out
}

// String renders the full stack, one frame per line: "#N 0xADDR func+0xOFF
// (file:line)".
func (c CallStack) String() string {
	frames := c.Frames()
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "#%-2d 0x%x %s+0x%x (%s:%d)\n", f.Index, f.PC, f.Function, f.Offset, f.File, f.Line)
	}
	return b.String()
}
