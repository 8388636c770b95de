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

package dterr

import (
	"github.com/hashicorp/go-multierror"
)

// Aggregate collects independent failures across a RunAll invocation (module
// dependency failures, transport errors not attributable to a single test)
// so a caller can inspect every failure instead of only the first.
type Aggregate struct {
	err *multierror.Error
}

// NewAggregate returns an empty Aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{err: &multierror.Error{}}
}

// Append records err if non-nil. Safe to call with a nil err as a no-op.
func (a *Aggregate) Append(err error) {
	if err == nil {
		return
	}
	a.err = multierror.Append(a.err, err)
}

// Len returns the number of errors recorded so far.
func (a *Aggregate) Len() int {
	if a.err == nil {
		return 0
	}
	return len(a.err.Errors)
}

// ErrorOrNil returns nil if no error was ever appended, otherwise an error
// whose Error() lists every recorded failure.
func (a *Aggregate) ErrorOrNil() error {
	return a.err.ErrorOrNil()
}
