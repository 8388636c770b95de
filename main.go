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

package dtest

import "github.com/norensa/dtest/sandbox"

// Bootstrap must be the first statement of any host application's main
// function, before test registration is consulted or RunAll is called. A
// process re-exec'd as a sandbox child never returns from this call.
//
// A host application that also registers distributed tests must separately
// call distributed.MaybeRunAsWorker() before Bootstrap (or in either order,
// since at most one of the two re-exec env vars is ever set on a given
// process) — it cannot be folded into Bootstrap itself, since the
// distributed package depends on this one for the Record type its Test
// implementation returns, and this package cannot import it back without
// creating a cycle.
func Bootstrap() {
	sandbox.MaybeRunAsChild()
}
