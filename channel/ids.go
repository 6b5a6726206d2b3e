// Copyright 2024 The TChannel-Go Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package channel

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/chubaofs/tchannel/proto"
)

// recentWindowBits sizes the fast-path membership bitset. An id's low
// bits index into this window; a set bit means "an id hashing to this
// slot has been handed out", which lets allocate skip a compare
// against the authoritative map for the common case of a fresh slot.
// The map remains authoritative so a collision in the window never
// causes two live ids to be confused.
const recentWindowBits = 1 << 16

// idAllocator hands out call ids per connection (a Connection keeps one,
// for the ids of the calls and pings it originates; inbound ids are
// chosen by the peer). Per §4.3, ids are monotonic per connection and wrap at
// 2^32, skipping any id currently in flight.
type idAllocator struct {
	next   uint32
	inUse  map[uint32]struct{}
	recent *bitset.BitSet
}

func newIDAllocator(start uint32) *idAllocator {
	return &idAllocator{
		next:   start,
		inUse:  make(map[uint32]struct{}),
		recent: bitset.New(recentWindowBits),
	}
}

// allocate returns an id not currently in flight, advancing the
// monotonic counter (wrapping at 2^32) and skipping proto.ConnectionIDFatal,
// which is reserved for whole-connection errors (§4.4).
func (a *idAllocator) allocate() (uint32, error) {
	for attempts := uint64(0); attempts <= 1<<32; attempts++ {
		id := a.next
		a.next++
		if id == 0 || id == uint32(proto.ConnectionIDFatal) {
			continue
		}
		slot := uint(id) % recentWindowBits
		if a.recent.Test(slot) {
			if _, busy := a.inUse[id]; busy {
				continue
			}
		}
		a.inUse[id] = struct{}{}
		a.recent.Set(slot)
		return id, nil
	}
	return 0, fmt.Errorf("tchannel: no free call id, %d in flight", len(a.inUse))
}

// release marks id free for reuse once its call has fully terminated.
// The window bit stays set: another live id may share the slot.
func (a *idAllocator) release(id uint32) {
	delete(a.inUse, id)
}

func (a *idAllocator) inFlight() int { return len(a.inUse) }
