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
	"github.com/norensa/dtest"
	"github.com/norensa/dtest/dterr"
)

// PerformanceTest is a Test that additionally fails if Body's elapsed time
// exceeds Baseline inflated by Margin, e.g. Margin 0.2 allows Body to run up
// to 20% slower than Baseline before failing. Leak and limit checks from the
// embedded Test still apply; a performance regression is reported only once
// those pass.
type PerformanceTest struct {
	Test

	// Baseline is the expected elapsed time for Body. A zero Baseline
	// disables the performance check entirely (useful while a new test's
	// baseline hasn't been established yet).
	Baseline func() (ns int64)
	// Margin is the fraction of Baseline that Body may additionally take
	// before the run is considered a regression.
	Margin float64
}

func (p *PerformanceTest) Execute() Record {
	rec := p.Test.Execute()
	if rec.Status != dtest.StatusPass || p.Baseline == nil {
		return rec
	}

	baseline := p.Baseline()
	if baseline <= 0 {
		return rec
	}

	limit := int64(float64(baseline) * (1 + p.Margin))
	if rec.Duration.Nanoseconds() > limit {
		rec.Status = dtest.StatusTooSlow
		rec.Err = dterr.Newf(dterr.CodeAssertion,
			"elapsed %s exceeds baseline %dns + %.0f%% margin (limit %dns)",
			rec.Duration, baseline, p.Margin*100, limit)
	}
	return rec
}
