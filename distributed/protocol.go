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
	"time"

	"github.com/norensa/dtest/message"
	"github.com/norensa/dtest/resource"
)

func newWorkerStarted(index int) *message.Message {
	m := message.NewOp(message.OpWorkerStarted)
	m.WriteUint32(uint32(index))
	return m
}

func readWorkerStarted(m *message.Message) (index int, err error) {
	v, err := m.ReadUint32()
	return int(v), err
}

func newRunTest(key string, index, count int) *message.Message {
	m := message.NewOp(message.OpRunTest)
	m.WriteString(key)
	m.WriteUint32(uint32(index))
	m.WriteUint32(uint32(count))
	return m
}

func readRunTest(m *message.Message) (key string, index, count int, err error) {
	if key, err = m.ReadString(); err != nil {
		return
	}
	var i, c uint32
	if i, err = m.ReadUint32(); err != nil {
		return
	}
	if c, err = m.ReadUint32(); err != nil {
		return
	}
	return key, int(i), int(c), nil
}

func newFinishedTest(index int, ok bool, code uint32, errText string, elapsed time.Duration, snap resource.Snapshot) *message.Message {
	m := message.NewOp(message.OpFinishedTest)
	m.WriteUint32(uint32(index))
	okByte := uint32(0)
	if ok {
		okByte = 1
	}
	m.WriteUint32(okByte)
	m.WriteUint32(code)
	m.WriteString(errText)
	m.WriteUint64(uint64(elapsed))
	writeSnapshot(m, snap)
	return m
}

func readFinishedTest(m *message.Message) (index int, ok bool, code uint32, errText string, elapsed time.Duration, snap resource.Snapshot, err error) {
	var i uint32
	if i, err = m.ReadUint32(); err != nil {
		return
	}
	index = int(i)
	var okByte uint32
	if okByte, err = m.ReadUint32(); err != nil {
		return
	}
	ok = okByte != 0
	if code, err = m.ReadUint32(); err != nil {
		return
	}
	if errText, err = m.ReadString(); err != nil {
		return
	}
	var ns uint64
	if ns, err = m.ReadUint64(); err != nil {
		return
	}
	elapsed = time.Duration(ns)
	snap, err = readSnapshot(m)
	return
}

func newNotify(barrier string) *message.Message {
	m := message.NewOp(message.OpNotify)
	m.WriteString(barrier)
	return m
}

func readNotify(m *message.Message) (string, error) {
	return m.ReadString()
}

func newTerminate() *message.Message {
	return message.NewOp(message.OpTerminate)
}

// newUserMessage writes from/to through int32 so the driverIndex sentinel
// (-1) round-trips correctly instead of wrapping to a large uint32.
func newUserMessage(from, to int, payload []byte) *message.Message {
	m := message.NewOp(message.OpUserMessage)
	m.WriteUint32(uint32(int32(from)))
	m.WriteUint32(uint32(int32(to)))
	m.WriteBytes(payload)
	return m
}

func readUserMessage(m *message.Message) (from, to int, payload []byte, err error) {
	var f, t uint32
	if f, err = m.ReadUint32(); err != nil {
		return
	}
	if t, err = m.ReadUint32(); err != nil {
		return
	}
	payload, err = m.ReadBytes()
	return int(int32(f)), int(int32(t)), payload, err
}

func writeSnapshot(m *message.Message, s resource.Snapshot) {
	for _, q := range []resource.Quantity{s.MemoryAllocate, s.MemoryDeallocate, s.MemoryMax, s.NetworkSend, s.NetworkReceive} {
		m.WriteUint64(q.Size)
		m.WriteUint64(q.Count)
	}
}

func readSnapshot(m *message.Message) (resource.Snapshot, error) {
	qs := make([]resource.Quantity, 5)
	for i := range qs {
		size, err := m.ReadUint64()
		if err != nil {
			return resource.Snapshot{}, err
		}
		count, err := m.ReadUint64()
		if err != nil {
			return resource.Snapshot{}, err
		}
		qs[i] = resource.Quantity{Size: size, Count: count}
	}
	return resource.Snapshot{
		MemoryAllocate:   qs[0],
		MemoryDeallocate: qs[1],
		MemoryMax:        qs[2],
		NetworkSend:      qs[3],
		NetworkReceive:   qs[4],
	}, nil
}
