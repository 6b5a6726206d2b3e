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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDAllocatorNoReuseWhileInFlight(t *testing.T) {
	a := newIDAllocator(2)
	seen := make(map[uint32]bool)
	for i := 0; i < 1000; i++ {
		id, err := a.allocate()
		require.NoError(t, err)
		require.False(t, seen[id], "id %d handed out twice while still in flight", id)
		seen[id] = true
	}
	require.Equal(t, 1000, a.inFlight())
}

func TestIDAllocatorSkipsReservedIDs(t *testing.T) {
	a := newIDAllocator(0)
	for i := 0; i < 10; i++ {
		id, err := a.allocate()
		require.NoError(t, err)
		require.NotZero(t, id)
		require.NotEqual(t, uint32(0xFFFFFFFF), id)
	}
}

func TestIDAllocatorReleaseAllowsReuse(t *testing.T) {
	a := newIDAllocator(2)
	id, err := a.allocate()
	require.NoError(t, err)
	a.release(id)
	require.Equal(t, 0, a.inFlight())

	// Rewind next back to the id just released: since it is no longer
	// in use, allocate must be willing to hand it out again.
	a.next = id
	id2, err := a.allocate()
	require.NoError(t, err)
	require.Equal(t, id, id2)
}
