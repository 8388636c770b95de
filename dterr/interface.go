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

// Package dterr provides the error vocabulary used across the sandbox, resource
// tracker, scheduler and distributed-protocol packages. It extends the standard
// error interface with a fixed error code, an optional parent chain, and
// compatibility with errors.Is / errors.As.
package dterr

import "errors"

// CodeError classifies an Error by the kind of failure it represents, so
// callers can branch on "was this a timeout" without string matching.
type CodeError uint16

const (
	CodeUnknown CodeError = iota
	CodeAssertion
	CodeUncaughtPanic
	CodeSandboxFatal
	CodeSignalTrap
	CodeTimeout
	CodeMemoryLeak
	CodeMemoryLimit
	CodeTransport
)

// String renders a CodeError using the names tests and reports use to refer
// to it; unknown codes fall back to a numeric form.
func (c CodeError) String() string {
	switch c {
	case CodeAssertion:
		return "ASSERTION"
	case CodeUncaughtPanic:
		return "UNCAUGHT_PANIC"
	case CodeSandboxFatal:
		return "SANDBOX_FATAL"
	case CodeSignalTrap:
		return "SIGNAL_TRAP"
	case CodeTimeout:
		return "TIMEOUT"
	case CodeMemoryLeak:
		return "MEMORY_LEAK"
	case CodeMemoryLimit:
		return "MEMORY_LIMIT"
	case CodeTransport:
		return "TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

// Error is the main interface used across the engine in place of bare error
// values whenever a caller needs to distinguish the failure kind or walk a
// parent chain. It is not safe for concurrent modification (Add), but is
// safe for concurrent reads.
type Error interface {
	error

	// Code returns the classification of this error.
	Code() CodeError

	// Is reports whether this error or any parent carries the given code.
	Is(code CodeError) bool

	// Add appends one or more parent errors to this error's chain.
	Add(parent ...error)

	// Parents returns the direct parent chain in the order it was added,
	// oldest first.
	Parents() []error

	// Unwrap supports errors.Is / errors.As over the parent chain.
	Unwrap() []error
}

type derr struct {
	code CodeError
	msg  string
	parn []error
}

func (e *derr) Error() string {
	return e.msg
}

func (e *derr) Code() CodeError {
	return e.code
}

func (e *derr) Is(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parn {
		if d, ok := p.(Error); ok && d.Is(code) {
			return true
		}
	}
	return false
}

func (e *derr) Add(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.parn = append(e.parn, p)
		}
	}
}

func (e *derr) Parents() []error {
	return e.parn
}

func (e *derr) Unwrap() []error {
	return e.parn
}

// New builds a new Error with the given code and message and an optional
// parent chain.
func New(code CodeError, msg string, parent ...error) Error {
	e := &derr{code: code, msg: msg}
	e.Add(parent...)
	return e
}

// Newf is New with fmt.Sprintf-style message formatting.
func Newf(code CodeError, pattern string, args ...any) Error {
	return New(code, sprintf(pattern, args...))
}

// Is reports whether err is a dterr.Error carrying the given code.
func Is(err error, code CodeError) bool {
	var e Error
	if errors.As(err, &e) {
		return e.Is(code)
	}
	return false
}

// Get unwraps err into a dterr.Error, returning nil if it is not one.
func Get(err error) Error {
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Wrap converts a plain error into a dterr.Error tagged with code, leaving
// err itself as the only parent. If err is already a dterr.Error, its code
// is left unchanged and it is returned as-is.
func Wrap(code CodeError, err error) Error {
	if err == nil {
		return nil
	}
	if e := Get(err); e != nil {
		return e
	}
	return New(code, err.Error(), err)
}
