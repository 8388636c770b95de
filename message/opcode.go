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

package message

// Opcode identifies the kind of frame exchanged on the distributed
// driver/worker protocol, and (for the sandbox's internal child/parent
// protocol) the Complete/Error pair.
type Opcode uint16

const (
	OpNop Opcode = iota
	OpWorkerStarted
	OpRunTest
	OpFinishedTest
	OpNotify
	OpTerminate
	OpUserMessage
	OpComplete
	OpError
)

func (o Opcode) String() string {
	switch o {
	case OpNop:
		return "NOP"
	case OpWorkerStarted:
		return "WORKER_STARTED"
	case OpRunTest:
		return "RUN_TEST"
	case OpFinishedTest:
		return "FINISHED_TEST"
	case OpNotify:
		return "NOTIFY"
	case OpTerminate:
		return "TERMINATE"
	case OpUserMessage:
		return "USER_MESSAGE"
	case OpComplete:
		return "COMPLETE"
	case OpError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// NewOp starts a Message whose first field is the given opcode, matching
// the wire layout "[u16 opcode] [payload...]" from the protocol spec.
func NewOp(op Opcode) *Message {
	m := New()
	m.WriteUint8(uint8(op))
	m.WriteUint8(uint8(op >> 8))
	return m
}

// ReadOp reads the leading opcode field of a decoded Message.
func ReadOp(m *Message) (Opcode, error) {
	lo, err := m.ReadUint8()
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadUint8()
	return Opcode(hi)<<8 | Opcode(lo), err
}
