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
	"context"
	"time"

	"github.com/norensa/dtest/config"
	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/resource"
	"github.com/norensa/dtest/sandbox"
)

// Test is a single-process test that runs Init, then measures Body for
// resource-leak and memory-limit violations, then runs Complete. Init and
// Complete are never measured: the tracker is only enabled around Body.
type Test struct {
	ModuleName string
	TestName   string
	// Deps names the modules this test depends on; it only becomes
	// eligible to run once every test registered under each named module
	// has passed.
	Deps []string

	// Timeout bounds the whole run (Init+Body+Complete), not just Body.
	Timeout time.Duration
	// Fork isolates this test in a re-exec'd child process. Recommended
	// whenever Body can corrupt process state on failure.
	Fork bool

	// IgnoreLeaks disables the net-allocation check after Body returns.
	IgnoreLeaks bool
	// MemoryLimit caps Body's peak net allocation in bytes; 0 disables the
	// check.
	MemoryLimit uint64

	Init     func(ctx context.Context) error
	Body     func(ctx context.Context) error
	Complete func(ctx context.Context) error

	Config *config.Config
}

func (t *Test) Module() string      { return t.ModuleName }
func (t *Test) Name() string        { return t.TestName }
func (t *Test) DependsOn() []string { return t.Deps }

func (t *Test) key() string { return t.ModuleName + "/" + t.TestName }

// Execute runs the test through the sandbox and returns its Record. The
// Module/Name/Status/Err/Duration/Snapshot fields are filled; callers
// typically feed this into dtest.Register + dtest.RunAll rather than
// calling it directly.
func (t *Test) Execute() Record {
	res := &childResult{}

	spec := sandbox.Spec{
		Key:  t.key(),
		Body: func(ctx context.Context) error { return t.runChild(ctx, res) },
		Pack: func() *message.Message {
			m := message.New()
			packSnapshot(m, res.delta, res.elapsed)
			return m
		},
		Unpack: func(m *message.Message) error {
			delta, elapsed, err := unpackSnapshot(m)
			if err != nil {
				return err
			}
			res.delta = delta
			res.elapsed = elapsed
			return nil
		},
	}
	sandbox.Register(spec)

	cfg := t.Config
	if cfg == nil {
		cfg = config.Default()
	}

	outcome, _ := sandbox.Run(spec, sandbox.Options{
		Fork:    t.Fork,
		Timeout: t.Timeout,
		Config:  cfg,
	})

	return toRecord(t.ModuleName, t.TestName, outcome, res.delta, res.elapsed)
}

func (t *Test) runChild(ctx context.Context, res *childResult) error {
	if t.Init != nil {
		if err := t.Init(ctx); err != nil {
			return dterr.Wrap(dterr.CodeAssertion, err)
		}
	}

	before := resource.Take()
	start := time.Now()
	resource.Track(true)
	bodyErr := t.Body(ctx)
	resource.Track(false)
	res.elapsed = time.Since(start)
	after := resource.Take()
	res.delta = resource.Delta(before, after)

	if bodyErr == nil {
		if leakErr := t.checkLeak(res.delta); leakErr != nil {
			bodyErr = leakErr
		}
	}
	if bodyErr == nil {
		if limitErr := t.checkLimit(res.delta); limitErr != nil {
			bodyErr = limitErr
		}
	}

	if t.Complete != nil {
		if cerr := t.Complete(ctx); cerr != nil && bodyErr == nil {
			bodyErr = dterr.Wrap(dterr.CodeAssertion, cerr)
		}
	}

	if bodyErr != nil {
		return dterr.Wrap(dterr.CodeAssertion, bodyErr)
	}
	return nil
}

func (t *Test) checkLeak(delta resource.Snapshot) error {
	if t.IgnoreLeaks {
		return nil
	}
	net := delta.NetAllocated()
	if net.Count == 0 {
		return nil
	}
	return dterr.Newf(dterr.CodeMemoryLeak, "leaked %d block(s) totalling %d byte(s)", net.Count, net.Size)
}

func (t *Test) checkLimit(delta resource.Snapshot) error {
	if t.MemoryLimit == 0 {
		return nil
	}
	if delta.MemoryMax.Size > t.MemoryLimit {
		return dterr.Newf(dterr.CodeMemoryLimit, "peak memory %d byte(s) exceeds limit %d byte(s)", delta.MemoryMax.Size, t.MemoryLimit)
	}
	return nil
}
