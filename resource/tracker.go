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

package resource

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/norensa/dtest/stack"
)

type block struct {
	size  uint64
	stack stack.CallStack
}

type mapping struct {
	start uint64
	end   uint64
	stack stack.CallStack
}

type tracker struct {
	mu sync.Mutex

	track int32 // 0/1, read with atomic so Lock/Unlock callers don't need the mutex

	heap map[uint64]block
	maps []mapping // sorted by end address

	allocSize, allocCount uint64
	freeSize, freeCount   uint64
	maxSize, maxCount     uint64

	netSendBytes, netSendCount uint64
	netRecvBytes, netRecvCount uint64

	nextHandle uint64
}

var std = &tracker{heap: make(map[uint64]block)}

// locked is the nesting counter that short-circuits re-entrant tracking
// when the tracker's own bookkeeping (e.g. the message codec) performs
// allocations. It is process-global rather than per-goroutine because a
// sandboxed test body runs its measured work on a single worker goroutine;
// see package doc for the rationale.
var locked int32

// Track enables or disables interception for the current phase. Tracking
// is disabled outside a test's measured phase.
func Track(enabled bool) {
	if enabled {
		atomic.StoreInt32(&std.track, 1)
	} else {
		atomic.StoreInt32(&std.track, 0)
	}
}

// Lock increments the suppression counter so tracker-internal allocations
// (e.g. inside the message codec) are never attributed to the test body.
func Lock() {
	atomic.AddInt32(&locked, 1)
}

// Unlock decrements the suppression counter.
func Unlock() {
	atomic.AddInt32(&locked, -1)
}

func isTracking() bool {
	return atomic.LoadInt32(&std.track) != 0
}

func enter() bool {
	if !isTracking() || atomic.LoadInt32(&locked) != 0 {
		return false
	}
	Lock()
	return true
}

func exit() {
	Unlock()
}

// canTrack reports whether the allocation/free captured at callstack should
// be counted, consulting the suppression table.
func canTrack(cs stack.CallStack) bool {
	return !suppressed(cs)
}

func (t *tracker) track(ptr uint64, size uint64, cs stack.CallStack) {
	if !canTrack(cs) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.heap[ptr] = block{size: size, stack: cs}
	t.allocSize += size
	t.allocCount++
	if t.allocSize-t.freeSize > t.maxSize {
		t.maxSize = t.allocSize - t.freeSize
	}
	if uint64(len(t.heap)) > t.maxCount {
		t.maxCount = uint64(len(t.heap))
	}
}

func (t *tracker) retrack(oldPtr, newPtr uint64, newSize uint64, cs stack.CallStack) error {
	t.mu.Lock()
	b, ok := t.heap[oldPtr]
	if !ok {
		t.mu.Unlock()
		if canTrack(cs) {
			return errFatalFree(oldPtr, cs)
		}
		// Suppressed: treat as a fresh track under the new pointer.
		t.track(newPtr, newSize, cs)
		return nil
	}
	delete(t.heap, oldPtr)
	t.freeSize += b.size
	t.freeCount++
	t.heap[newPtr] = block{size: newSize, stack: cs}
	t.allocSize += newSize
	t.allocCount++
	if t.allocSize-t.freeSize > t.maxSize {
		t.maxSize = t.allocSize - t.freeSize
	}
	if uint64(len(t.heap)) > t.maxCount {
		t.maxCount = uint64(len(t.heap))
	}
	t.mu.Unlock()
	return nil
}

func (t *tracker) remove(ptr uint64, cs stack.CallStack) error {
	t.mu.Lock()
	b, ok := t.heap[ptr]
	if !ok {
		t.mu.Unlock()
		if canTrack(cs) {
			return errFatalFree(ptr, cs)
		}
		return nil
	}
	delete(t.heap, ptr)
	t.freeSize += b.size
	t.freeCount++
	t.mu.Unlock()
	return nil
}

// clear treats every remaining heap block as freed, recovering tracker
// state after a leaky test so the next phase starts clean.
func (t *tracker) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range t.heap {
		t.freeSize += b.size
		t.freeCount++
	}
	t.heap = make(map[uint64]block)
}

// --- mapping map (mmap/munmap) ---

func (t *tracker) mmapTrack(start, size uint64, cs stack.CallStack) {
	if !canTrack(cs) {
		return
	}
	end := start + size

	t.mu.Lock()
	defer t.mu.Unlock()

	t.maps = append(t.maps, mapping{start: start, end: end, stack: cs})
	sort.Slice(t.maps, func(i, j int) bool { return t.maps[i].end < t.maps[j].end })

	t.allocSize += size
	t.allocCount++
	if t.allocSize-t.freeSize > t.maxSize {
		t.maxSize = t.allocSize - t.freeSize
	}
}

// mmapUntrack removes [start, start+size) from the mapping map, splitting
// the enclosing region into up to two remainders when the unmapped range is
// a strict subset. Returns the number of bytes actually consumed from a
// tracked region (0 if the range was never tracked and not suppressed).
func (t *tracker) mmapUntrack(start, size uint64, cs stack.CallStack) (uint64, error) {
	end := start + size

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := sort.Search(len(t.maps), func(i int) bool { return t.maps[i].end >= start+1 })
	for i := idx; i < len(t.maps); i++ {
		m := t.maps[i]
		if m.start > start {
			break
		}
		if m.start <= start && end <= m.end {
			// fully contained: split into up to two remainders
			consumed := size
			var rest []mapping
			rest = append(rest, t.maps[:i]...)
			if m.start < start {
				rest = append(rest, mapping{start: m.start, end: start, stack: m.stack})
			}
			if end < m.end {
				rest = append(rest, mapping{start: end, end: m.end, stack: m.stack})
			}
			rest = append(rest, t.maps[i+1:]...)
			sort.Slice(rest, func(a, b int) bool { return rest[a].end < rest[b].end })
			t.maps = rest

			t.freeSize += consumed
			t.freeCount++
			return consumed, nil
		}
	}

	if canTrack(cs) {
		return 0, errFatalFree(start, cs)
	}
	return 0, nil
}
