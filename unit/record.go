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

package unit

import (
	"errors"
	"time"

	"github.com/norensa/dtest"
	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/resource"
	"github.com/norensa/dtest/sandbox"
)

// Record is an alias for the root package's Record, kept local so callers
// working only with this package need not import the root one directly.
type Record = dtest.Record

func toRecord(module, name string, outcome sandbox.Outcome, delta resource.Snapshot, elapsed time.Duration) Record {
	r := Record{
		Module:   module,
		Name:     name,
		Duration: elapsed,
		Snapshot: delta,
	}

	switch outcome.Status {
	case sandbox.StatusComplete:
		r.Status = dtest.StatusPass
	case sandbox.StatusTimeout:
		r.Status = dtest.StatusTimeout
		r.Err = errors.New(outcome.ErrorText)
	case sandbox.StatusCrashed:
		r.Status = dtest.StatusCrash
		r.Err = errors.New(outcome.ErrorText)
	default: // sandbox.StatusError
		switch outcome.ErrorCode {
		case dterr.CodeMemoryLeak:
			r.Status = dtest.StatusPassWithMemoryLeak
			r.Err = dterr.New(outcome.ErrorCode, outcome.ErrorText)
		case dterr.CodeMemoryLimit:
			r.Status = dtest.StatusMemoryLimitExceeded
			r.Err = dterr.New(outcome.ErrorCode, outcome.ErrorText)
		case dterr.CodeUnknown:
			r.Status = dtest.StatusFail
			r.Err = errors.New(outcome.ErrorText)
		default:
			r.Status = dtest.StatusFail
			r.Err = dterr.New(outcome.ErrorCode, outcome.ErrorText)
		}
	}

	if len(outcome.Stdout) > 0 || len(outcome.Stderr) > 0 {
		// Stdio is captured for diagnostics but intentionally not part of
		// Record; a reporting layer that wants it can be added without
		// changing this struct's wire/JSON shape.
		_ = outcome.Stdout
		_ = outcome.Stderr
	}

	return r
}
