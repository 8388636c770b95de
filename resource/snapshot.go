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

// Quantity is a paired size/count counter.
type Quantity struct {
	Size  uint64 `json:"size"`
	Count uint64 `json:"count"`
}

// Snapshot is a point-in-time or differential view of tracked activity.
// Snapshots bracketing a phase (Take called once at phase start, once at
// phase end) yield the net activity of that phase via Delta.
type Snapshot struct {
	MemoryAllocate   Quantity `json:"memory_allocate"`
	MemoryDeallocate Quantity `json:"memory_deallocate"`
	MemoryMax        Quantity `json:"memory_max"`
	NetworkSend      Quantity `json:"network_send"`
	NetworkReceive   Quantity `json:"network_receive"`
}

// Take captures the tracker's current running totals.
func Take() Snapshot {
	t := std
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		MemoryAllocate:   Quantity{Size: t.allocSize, Count: t.allocCount},
		MemoryDeallocate: Quantity{Size: t.freeSize, Count: t.freeCount},
		MemoryMax:        Quantity{Size: t.maxSize, Count: t.maxCount},
		NetworkSend:      Quantity{Size: t.netSendBytes, Count: t.netSendCount},
		NetworkReceive:   Quantity{Size: t.netRecvBytes, Count: t.netRecvCount},
	}
}

func subQuantity(cur, base Quantity) Quantity {
	return Quantity{
		Size:  subU64(cur.Size, base.Size),
		Count: subU64(cur.Count, base.Count),
	}
}

func subU64(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// Delta returns the net activity between base (the earlier snapshot) and
// cur (the later one): for each counter, cur - base. MemoryMax is reported
// as the later snapshot's absolute high-water mark, since a "delta" of a
// running maximum is not meaningful.
func Delta(base, cur Snapshot) Snapshot {
	return Snapshot{
		MemoryAllocate:   subQuantity(cur.MemoryAllocate, base.MemoryAllocate),
		MemoryDeallocate: subQuantity(cur.MemoryDeallocate, base.MemoryDeallocate),
		MemoryMax:        cur.MemoryMax,
		NetworkSend:      subQuantity(cur.NetworkSend, base.NetworkSend),
		NetworkReceive:   subQuantity(cur.NetworkReceive, base.NetworkReceive),
	}
}

// NetAllocated is the leak-detection quantity: allocated minus deallocated
// bytes/blocks over the snapshot.
func (s Snapshot) NetAllocated() Quantity {
	return Quantity{
		Size:  subU64(s.MemoryAllocate.Size, s.MemoryDeallocate.Size),
		Count: subU64(s.MemoryAllocate.Count, s.MemoryDeallocate.Count),
	}
}
