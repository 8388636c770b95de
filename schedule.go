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

import (
	"fmt"

	"github.com/norensa/dtest/dtlog"
)

// Report is the outcome of one RunAll call.
type Report struct {
	Records []Record `json:"records"`
}

// Passed reports whether every record in the report is a StatusPass.
func (r Report) Passed() bool {
	for _, rec := range r.Records {
		if rec.Status != StatusPass {
			return false
		}
	}
	return true
}

// RunAll executes every test named in keys (or every registered test, if
// keys is empty) in module-dependency order: DependsOn names MODULES, and a
// module is only eligible to run once every test in each module it depends
// on has reached a terminal status. A module in which any test did not Pass
// causes every test in every transitively dependent module to be recorded
// as Skip without running. Among modules simultaneously ready to run, one
// that was just unblocked by a just-finished dependency module is promoted
// ahead of modules that were already ready, so dependency chains complete
// together instead of interleaving arbitrarily with unrelated work. Tests
// within one module always run in registration order and are never
// interleaved with another module's tests.
func RunAll(keys ...string) (Report, error) {
	var tests []Test
	if len(keys) == 0 {
		tests = All()
	} else {
		for _, k := range keys {
			t, ok := Lookup(k)
			if !ok {
				return Report{}, fmt.Errorf("dtest: no registered test %q", k)
			}
			tests = append(tests, t)
		}
	}

	if err := validateModuleDependencies(tests); err != nil {
		return Report{}, err
	}

	var moduleOrder []string
	moduleTests := map[string][]Test{}
	for _, t := range tests {
		m := t.Module()
		if _, ok := moduleTests[m]; !ok {
			moduleOrder = append(moduleOrder, m)
		}
		moduleTests[m] = append(moduleTests[m], t)
	}

	// Union every test's DependsOn() within a module into that module's own
	// dependency set, deduplicated but keeping first-seen order so a skip
	// report always names the same blocking module for a given registry.
	moduleDeps := map[string][]string{}
	for _, m := range moduleOrder {
		seen := map[string]bool{}
		var deps []string
		for _, t := range moduleTests[m] {
			for _, d := range t.DependsOn() {
				if d == m || seen[d] {
					continue
				}
				seen[d] = true
				deps = append(deps, d)
			}
		}
		moduleDeps[m] = deps
	}

	dependents := map[string][]string{}
	remaining := map[string]int{}
	for _, m := range moduleOrder {
		remaining[m] = len(moduleDeps[m])
		for _, d := range moduleDeps[m] {
			dependents[d] = append(dependents[d], m)
		}
	}

	var ready []string
	for _, m := range moduleOrder {
		if remaining[m] == 0 {
			ready = append(ready, m)
		}
	}

	results := make(map[string]Record, len(tests))
	// moduleFailedBy records the key of the first test in a module that did
	// not Pass, once that module has finished; a module with no entry here
	// passed outright.
	moduleFailedBy := map[string]string{}
	log := dtlog.New().WithModule("dtest").WithPhase("schedule")

	for len(ready) > 0 {
		m := ready[0]
		ready = ready[1:]

		blocker, blocked := blockingModule(moduleDeps[m], moduleFailedBy)

		for _, t := range moduleTests[m] {
			key := t.Module() + "/" + t.Name()
			var rec Record

			if blocked {
				rec = Record{
					Module: t.Module(),
					Name:   t.Name(),
					Status: StatusSkip,
					Err:    fmt.Errorf("dtest: skipped, dependency module %q did not pass", blocker),
				}
				log.WithTest(key).WithStatus(rec.Status.String()).Info("skipped")
			} else {
				rec = t.Execute()
				log.WithTest(key).WithStatus(rec.Status.String()).Info("finished")
			}

			results[key] = rec
			if rec.Status != StatusPass {
				if _, failed := moduleFailedBy[m]; !failed {
					moduleFailedBy[m] = key
				}
			}
		}

		for _, dep := range dependents[m] {
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append([]string{dep}, ready...)
			}
		}
	}

	out := Report{Records: make([]Record, 0, len(tests))}
	for _, t := range tests {
		key := t.Module() + "/" + t.Name()
		out.Records = append(out.Records, results[key])
	}
	return out, nil
}

// blockingModule returns the first module in deps that did not pass every
// one of its tests, if any. By the time a module is popped off the ready
// queue, every module it depends on has already finished, so presence in
// moduleFailedBy is a reliable pass/fail signal.
func blockingModule(deps []string, moduleFailedBy map[string]string) (string, bool) {
	for _, d := range deps {
		if _, failed := moduleFailedBy[d]; failed {
			return d, true
		}
	}
	return "", false
}
