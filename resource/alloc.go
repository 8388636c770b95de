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
	"sync/atomic"

	"github.com/norensa/dtest/stack"
)

// Alloc, Free, Mmap and Munmap are the explicit instrumented-allocator
// facade test bodies call in place of a hooked malloc/free/mmap/munmap.
// They return synthetic opaque handles rather than real memory addresses:
// this package tracks accounting, not actual memory, since the point under
// test is the bookkeeping discipline (every allocation freed exactly once,
// limits honored) rather than real heap contents.

// Alloc records an allocation of n bytes and returns a handle identifying
// it for a later Free.
func Alloc(n uint64) uint64 {
	if !enter() {
		return nextHandle()
	}
	defer exit()

	h := nextHandle()
	std.track(h, n, stack.Trace(1))
	return h
}

// Free releases a handle previously returned by Alloc. Freeing an unknown
// handle raises a fatal sandbox error unless the call site is suppressed.
func Free(h uint64) error {
	if !enter() {
		return nil
	}
	defer exit()

	return std.remove(h, stack.Trace(1))
}

// Realloc releases oldHandle and records a new allocation of newSize bytes
// under a freshly minted handle, returning it. Mirrors realloc/reallocarray
// semantics: the old handle becomes invalid even if newSize < old size.
func Realloc(oldHandle uint64, newSize uint64) (uint64, error) {
	if !enter() {
		return nextHandle(), nil
	}
	defer exit()

	h := nextHandle()
	if err := std.retrack(oldHandle, h, newSize, stack.Trace(1)); err != nil {
		return 0, err
	}
	return h, nil
}

// Mmap records a mapping of n bytes and returns a handle identifying its
// start address.
func Mmap(n uint64) uint64 {
	if !enter() {
		return nextHandle()
	}
	defer exit()

	h := nextHandle()
	std.mmapTrack(h, n, stack.Trace(1))
	return h
}

// Munmap releases [h, h+n) from a prior Mmap, supporting partial unmap of a
// larger mapping.
func Munmap(h uint64, n uint64) error {
	if !enter() {
		return nil
	}
	defer exit()

	_, err := std.mmapUntrack(h, n, stack.Trace(1))
	return err
}

// Clear recovers tracker state after a leaky test, treating every
// remaining block as freed.
func Clear() {
	std.clear()
}

var handleCounter uint64

// nextHandle mints a process-unique, non-zero synthetic address so the
// heap/mapping maps behave like real pointer-keyed maps without ever
// touching real memory.
func nextHandle() uint64 {
	return atomic.AddUint64(&handleCounter, 4096)
}
