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
	"encoding/json"
	"fmt"
	"time"

	"github.com/norensa/dtest/resource"
)

// Status is the terminal disposition of one test run.
type Status int

const (
	StatusPending Status = iota
	StatusPass
	StatusPassWithMemoryLeak
	StatusMemoryLimitExceeded
	StatusTooSlow
	StatusSkip
	StatusFail
	StatusTimeout
	StatusCrash
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusPass:
		return "PASS"
	case StatusPassWithMemoryLeak:
		return "PASS (memory leak)"
	case StatusMemoryLimitExceeded:
		return "PASS (memory limit exceeded)"
	case StatusTooSlow:
		return "TOO SLOW"
	case StatusFail:
		return "FAIL"
	case StatusSkip:
		return "SKIP"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusCrash:
		return "CRASH"
	default:
		return "UNKNOWN"
	}
}

// worse reports whether candidate outranks current in the worst-status-wins
// ordering used to merge distributed sub-results into one Record: a single
// failing child makes the whole distributed test fail, even if its peers
// passed.
func worse(current, candidate Status) bool {
	return rank(candidate) > rank(current)
}

func rank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusPass:
		return 1
	case StatusPassWithMemoryLeak:
		return 2
	case StatusMemoryLimitExceeded:
		return 3
	case StatusTooSlow:
		return 4
	case StatusSkip:
		return 5
	case StatusFail:
		return 6
	case StatusTimeout:
		return 7
	case StatusCrash:
		return 8
	default:
		return 8
	}
}

// Merge folds other into r under worst-status-wins, keeping r's identity
// fields and the longer of the two durations, summing allocation and
// network activity and keeping the higher MemoryMax.
func (r Record) Merge(other Record) Record {
	out := r
	if worse(out.Status, other.Status) {
		out.Status = other.Status
		out.Err = other.Err
	}
	if other.Duration > out.Duration {
		out.Duration = other.Duration
	}
	out.Snapshot = resource.Snapshot{
		MemoryAllocate:   addQuantity(out.Snapshot.MemoryAllocate, other.Snapshot.MemoryAllocate),
		MemoryDeallocate: addQuantity(out.Snapshot.MemoryDeallocate, other.Snapshot.MemoryDeallocate),
		MemoryMax:        maxQuantity(out.Snapshot.MemoryMax, other.Snapshot.MemoryMax),
		NetworkSend:      addQuantity(out.Snapshot.NetworkSend, other.Snapshot.NetworkSend),
		NetworkReceive:   addQuantity(out.Snapshot.NetworkReceive, other.Snapshot.NetworkReceive),
	}
	return out
}

func addQuantity(a, b resource.Quantity) resource.Quantity {
	return resource.Quantity{Size: a.Size + b.Size, Count: a.Count + b.Count}
}

func maxQuantity(a, b resource.Quantity) resource.Quantity {
	if b.Size > a.Size {
		a.Size = b.Size
	}
	if b.Count > a.Count {
		a.Count = b.Count
	}
	return a
}

// Record is the outcome of one test, whether a single sandboxed run or a
// merge of a distributed test's worker children.
type Record struct {
	Module   string         `json:"module"`
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Err      error          `json:"-"`
	ErrText  string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
	Snapshot resource.Snapshot `json:"resources"`
}

// Key returns the "module/name" identity used for registration and
// dependency references.
func (r Record) Key() string {
	return r.Module + "/" + r.Name
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the string form written by MarshalJSON.
func (s *Status) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	for c := StatusPending; c <= StatusCrash; c++ {
		if c.String() == str {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("dtest: unknown status %q", str)
}

// MarshalJSON renders ErrText from Err so callers need not keep the two in
// sync by hand.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	a := alias(r)
	if r.Err != nil {
		a.ErrText = r.Err.Error()
	}
	return json.Marshal(a)
}
