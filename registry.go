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
	"sync"
)

// Test is implemented by every runnable descriptor kind — unit.Test,
// unit.PerformanceTest and distributed.Test all satisfy it. Execute runs the
// test to completion (including any sandboxing) and returns its Record.
type Test interface {
	Module() string
	Name() string

	// DependsOn names the MODULES this test depends on, not individual test
	// keys: a test is eligible to run only once every test registered under
	// each named module has reached a terminal status, and only if every one
	// of them passed.
	DependsOn() []string
	Execute() Record
}

var (
	registryMu sync.Mutex
	registry   = map[string]Test{}
	order      []string
)

// Register adds t to the global registry under "module/name". Registering
// the same key twice replaces the prior entry but keeps its original
// position in run order.
func Register(t Test) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := t.Module() + "/" + t.Name()
	if _, exists := registry[key]; !exists {
		order = append(order, key)
	}
	registry[key] = t
}

// All returns every registered test in registration order.
func All() []Test {
	registryMu.Lock()
	defer registryMu.Unlock()

	out := make([]Test, 0, len(order))
	for _, k := range order {
		out = append(out, registry[k])
	}
	return out
}

// Lookup returns the test registered under "module/name".
func Lookup(key string) (Test, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	t, ok := registry[key]
	return t, ok
}

// validateModuleDependencies checks that every module a selected test
// depends on has at least one test among the selected set — a dependency
// set names modules, not individual tests.
func validateModuleDependencies(tests []Test) error {
	present := make(map[string]bool, len(tests))
	for _, t := range tests {
		present[t.Module()] = true
	}
	for _, t := range tests {
		for _, dep := range t.DependsOn() {
			if dep == t.Module() {
				continue
			}
			if !present[dep] {
				return fmt.Errorf("dtest: %s/%s depends on unregistered module %q", t.Module(), t.Name(), dep)
			}
		}
	}
	return nil
}
