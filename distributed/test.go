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
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/norensa/dtest"
	"github.com/norensa/dtest/config"
	"github.com/norensa/dtest/dterr"
)

// Test runs Body concurrently across Workers re-exec'd child processes,
// coordinated by a Driver, and merges their individual results into one
// Record under worst-status-wins.
type Test struct {
	ModuleName string
	TestName   string
	// Deps names the modules this test depends on; it only becomes
	// eligible to run once every test registered under each named module
	// has passed.
	Deps []string

	// Workers is the number of child processes Body runs on. Must be >= 1.
	Workers int
	// Timeout bounds the whole run, from the first worker's dial to the
	// last worker's FINISHED_TEST.
	Timeout time.Duration

	Body Body

	// DriverBody, if set, runs once on a goroutine in the driver's own
	// process (not in a sandbox child) concurrently with every worker's
	// Body, joined to the same NOTIFY barriers. Unlike
	// Body it does not run per-worker: there is exactly one invocation, with
	// Context.Index() == -1.
	DriverBody Body

	Config *config.Config
}

func (t *Test) Module() string      { return t.ModuleName }
func (t *Test) Name() string        { return t.TestName }
func (t *Test) DependsOn() []string { return t.Deps }

func (t *Test) key() string { return t.ModuleName + "/" + t.TestName }

// Execute spawns Workers child processes running Body, waits for the
// driver to collect every worker's result and folds them into one Record.
func (t *Test) Execute() Record {
	cfg := t.Config
	if cfg == nil {
		cfg = config.Default()
	}
	timeout := t.Timeout
	if timeout < cfg.TimeoutFloor {
		timeout = cfg.TimeoutFloor
	}
	workers := t.Workers
	if workers < 1 {
		workers = 1
	}

	Register(Spec{Key: t.key(), Body: t.Body})

	driver, err := NewDriver(t.key(), workers, cfg)
	if err != nil {
		return failedRecord(t.ModuleName, t.TestName, err)
	}
	if t.DriverBody != nil {
		driver.SetDriverBody(t.DriverBody)
	}

	exe, err := os.Executable()
	if err != nil {
		return failedRecord(t.ModuleName, t.TestName, err)
	}

	cmds := make([]*exec.Cmd, workers)
	for i := 0; i < workers; i++ {
		cmd := exec.Command(exe, os.Args[1:]...)
		cmd.Env = append(os.Environ(),
			envDistKey+"="+t.key(),
			envDistUserAddr+"="+driver.UserAddr(),
			envDistSuperAddr+"="+driver.SuperAddr(),
			envDistIndex+"="+strconv.Itoa(i),
			envDistCount+"="+strconv.Itoa(workers),
			envDistTimeout+"="+strconv.FormatInt(int64(timeout), 10),
		)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return failedRecord(t.ModuleName, t.TestName, fmt.Errorf("distributed: spawning worker %d: %w", i, err))
		}
		cmds[i] = cmd
	}

	waits := make([]chan error, workers)
	for i, cmd := range cmds {
		wd := make(chan error, 1)
		go func(cmd *exec.Cmd, wd chan error) { wd <- cmd.Wait() }(cmd, wd)
		waits[i] = wd
	}

	results, runErr := driver.Run(timeout)

	for i, cmd := range cmds {
		reapWorker(cmd, waits[i], cfg.KillGrace)
	}

	byIndex := make(map[int]workerResult, len(results))
	for _, r := range results {
		byIndex[r.index] = r
	}

	var merged Record
	for i := 0; i < workers; i++ {
		var rec Record
		if r, ok := byIndex[i]; ok {
			rec = recordFromWorkerResult(t.ModuleName, t.TestName, r)
		} else {
			rec = missingWorkerRecord(t.ModuleName, t.TestName, i)
		}
		if i == 0 {
			merged = rec
		} else {
			merged = merged.Merge(rec)
		}
	}

	if t.DriverBody != nil {
		driverRec := driverBodyRecord(t.ModuleName, t.TestName, driver.DriverErr(), driver.DriverElapsed(), driver.DriverSnapshot())
		merged = merged.Merge(driverRec)
	}

	if runErr != nil && merged.Err == nil {
		merged.Err = dterr.Wrap(dterr.CodeTimeout, runErr)
	}

	return merged
}

// reapWorker waits up to grace for cmd to exit on its own once the driver
// has already concluded the run, escalating to a kill if it overstays.
func reapWorker(cmd *exec.Cmd, waitDone <-chan error, grace time.Duration) {
	select {
	case <-waitDone:
	case <-time.After(grace):
		_ = cmd.Process.Kill()
		<-waitDone
	}
}

func failedRecord(module, name string, err error) Record {
	return Record{
		Module: module,
		Name:   name,
		Status: dtest.StatusFail,
		Err:    err,
	}
}
