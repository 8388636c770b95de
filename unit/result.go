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
	"time"

	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/resource"
)

// childResult is the mutable holder a Test's Body/Pack closures share
// across a single Execute call. It crosses the sandbox boundary only
// through packSnapshot/unpackSnapshot — the pointer itself is never sent.
type childResult struct {
	delta   resource.Snapshot
	elapsed time.Duration
}

func packSnapshot(m *message.Message, s resource.Snapshot, elapsed time.Duration) {
	writeQuantity(m, s.MemoryAllocate)
	writeQuantity(m, s.MemoryDeallocate)
	writeQuantity(m, s.MemoryMax)
	writeQuantity(m, s.NetworkSend)
	writeQuantity(m, s.NetworkReceive)
	m.WriteUint64(uint64(elapsed))
}

func unpackSnapshot(m *message.Message) (resource.Snapshot, time.Duration, error) {
	var s resource.Snapshot
	var err error
	if s.MemoryAllocate, err = readQuantity(m); err != nil {
		return s, 0, err
	}
	if s.MemoryDeallocate, err = readQuantity(m); err != nil {
		return s, 0, err
	}
	if s.MemoryMax, err = readQuantity(m); err != nil {
		return s, 0, err
	}
	if s.NetworkSend, err = readQuantity(m); err != nil {
		return s, 0, err
	}
	if s.NetworkReceive, err = readQuantity(m); err != nil {
		return s, 0, err
	}
	elapsed, err := m.ReadUint64()
	if err != nil {
		return s, 0, err
	}
	return s, time.Duration(elapsed), nil
}

func writeQuantity(m *message.Message, q resource.Quantity) {
	m.WriteUint64(q.Size)
	m.WriteUint64(q.Count)
}

func readQuantity(m *message.Message) (resource.Quantity, error) {
	size, err := m.ReadUint64()
	if err != nil {
		return resource.Quantity{}, err
	}
	count, err := m.ReadUint64()
	if err != nil {
		return resource.Quantity{}, err
	}
	return resource.Quantity{Size: size, Count: count}, nil
}
