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

package sandbox

import (
	"context"
	"sync"

	"github.com/norensa/dtest/dterr"
	"github.com/norensa/dtest/message"
)

// Spec describes one runnable unit of sandboxed work. The same Spec value
// must be reconstructable identically in a re-exec'd child process, so Body,
// Pack and Unpack must be pure functions of data reachable from Key alone
// (typically a closure over a registered test descriptor) — never over
// per-invocation state captured only in the parent's memory.
type Spec struct {
	// Key identifies this Spec in the process-wide registry. Re-exec'd
	// children look themselves up by Key via the DTEST_SANDBOX_KEY
	// environment variable.
	Key string

	// Body is the measured work. A non-nil return is reported as a failed
	// run in an ERROR frame carrying the error's dterr code (CodeUnknown for
	// a plain error); Pack is not called.
	Body func(ctx context.Context) error

	// Pack builds the COMPLETE payload after Body returns successfully. A
	// nil Pack sends an empty COMPLETE payload.
	Pack func() *message.Message

	// Unpack runs in the parent once a COMPLETE frame arrives, decoding
	// Pack's payload back into the caller's result holder. A nil Unpack
	// discards the payload.
	Unpack func(m *message.Message) error
}

var (
	registryMu sync.Mutex
	registry   = map[string]Spec{}
)

// Register installs spec under spec.Key, overwriting any prior registration
// under the same key. Host applications call this once per test descriptor
// at load time — the same init-time registration happens identically in a
// re-exec'd child, since it is the same binary.
func Register(spec Spec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[spec.Key] = spec
}

func lookup(key string) (Spec, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := registry[key]
	return s, ok
}

// Status classifies how a sandboxed run ended.
type Status int

const (
	StatusComplete Status = iota
	StatusError
	StatusTimeout
	StatusCrashed
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "COMPLETE"
	case StatusError:
		return "ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusCrashed:
		return "CRASHED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of one Run call.
type Outcome struct {
	Status    Status
	ErrorCode dterr.CodeError
	ErrorText string
	Stdout    []byte
	Stderr    []byte
}
