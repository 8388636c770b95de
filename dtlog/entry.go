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

package dtlog

import "github.com/sirupsen/logrus"

// Entry builds a structured log line one field at a time and emits it with
// one of the terminal level methods. Entries are cheap, short-lived values;
// callers construct one per log statement via New().
type Entry interface {
	WithModule(module string) Entry
	WithTest(name string) Entry
	WithPhase(phase string) Entry
	WithStatus(status string) Entry
	WithWorker(id string) Entry
	WithError(err error) Entry
	WithField(key string, val any) Entry

	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type entry struct {
	log    *logrus.Logger
	fields logrus.Fields
}

func (e *entry) clone() *entry {
	f := make(logrus.Fields, len(e.fields)+1)
	for k, v := range e.fields {
		f[k] = v
	}
	return &entry{log: e.log, fields: f}
}

func (e *entry) WithModule(module string) Entry {
	n := e.clone()
	n.fields["module"] = module
	return n
}

func (e *entry) WithTest(name string) Entry {
	n := e.clone()
	n.fields["test"] = name
	return n
}

func (e *entry) WithPhase(phase string) Entry {
	n := e.clone()
	n.fields["phase"] = phase
	return n
}

func (e *entry) WithStatus(status string) Entry {
	n := e.clone()
	n.fields["status"] = status
	return n
}

func (e *entry) WithWorker(id string) Entry {
	n := e.clone()
	n.fields["worker_id"] = id
	return n
}

func (e *entry) WithError(err error) Entry {
	n := e.clone()
	if err != nil {
		n.fields["error"] = err.Error()
	}
	return n
}

func (e *entry) WithField(key string, val any) Entry {
	n := e.clone()
	n.fields[key] = val
	return n
}

func (e *entry) Debug(msg string) { e.log.WithFields(e.fields).Debug(msg) }
func (e *entry) Info(msg string)  { e.log.WithFields(e.fields).Info(msg) }
func (e *entry) Warn(msg string)  { e.log.WithFields(e.fields).Warn(msg) }
func (e *entry) Error(msg string) { e.log.WithFields(e.fields).Error(msg) }
