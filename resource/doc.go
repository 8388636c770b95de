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
 *
 *
 */

// Package resource is the sandbox's activity tracker. Since a sandboxed
// test body always runs inside its own re-exec'd OS process, the tracker is
// a single package-level singleton per process rather than per-test state:
// there is exactly one measured phase alive at a time and no cross-test
// leakage is possible even without explicit reinitialization between runs.
//
// Go has no replaceable libc to interpose malloc/send at the symbol level,
// so tracking is fed by an explicit instrumented-allocator facade
// (Alloc/Free/Mmap/Munmap/WrapConn) that test bodies call directly instead
// of a hooked global allocator. This is the "manual arena-based allocator"
// degradation path anticipated for platforms without interposition.
package resource
