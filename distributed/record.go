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

package distributed

import (
	"time"

	"github.com/norensa/dtest"
	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/resource"
)

// Record is an alias for the root package's Record, kept local so callers
// working only with this package need not import the root one directly.
type Record = dtest.Record

// recordFromWorkerResult converts one worker's wire-level result into a
// Record carrying that worker alone — callers fold every worker's Record
// together with Record.Merge to get the test's overall disposition.
func recordFromWorkerResult(module, name string, wr workerResult) Record {
	r := Record{
		Module:   module,
		Name:     name,
		Duration: wr.elapsed,
		Snapshot: wr.snapshot,
	}

	if wr.ok {
		r.Status = dtest.StatusPass
		return r
	}

	r.Status = dtest.StatusFail
	if wr.code != uint32(dterr.CodeUnknown) {
		r.Err = dterr.New(dterr.CodeError(wr.code), wr.errText)
	} else {
		r.Err = dterr.New(dterr.CodeAssertion, wr.errText)
	}
	return r
}

// missingWorkerRecord stands in for a worker that never reported
// FINISHED_TEST before the driver's deadline elapsed.
func missingWorkerRecord(module, name string, index int) Record {
	return Record{
		Module: module,
		Name:   name,
		Status: dtest.StatusTimeout,
		Err:    dterr.Newf(dterr.CodeTimeout, "worker %d never reported back", index),
	}
}

// driverBodyRecord converts the driver body's own outcome into a Record so
// it folds into the test's overall disposition via Record.Merge alongside
// every worker's Record, under the same worst-status-wins rule. Unlike
// unit.Test, no leak or memory-limit check is applied to the driver body's
// resource delta — it is reported for visibility only.
func driverBodyRecord(module, name string, err error, elapsed time.Duration, snap resource.Snapshot) Record {
	r := Record{
		Module:   module,
		Name:     name,
		Duration: elapsed,
		Snapshot: snap,
	}
	if err == nil {
		r.Status = dtest.StatusPass
		return r
	}
	r.Status = dtest.StatusFail
	r.Err = dterr.Wrap(dterr.CodeAssertion, err)
	return r
}
