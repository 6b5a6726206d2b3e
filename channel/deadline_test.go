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
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeadlineIndexExpiresEarliestFirst(t *testing.T) {
	base := time.Unix(0, 0)
	d := newDeadlineIndex()
	d.add(3, base.Add(30*time.Millisecond))
	d.add(1, base.Add(10*time.Millisecond))
	d.add(2, base.Add(20*time.Millisecond))
	require.Equal(t, 3, d.len())

	got := d.expired(base.Add(25 * time.Millisecond))
	require.Equal(t, []uint32{1, 2}, got)
	require.Equal(t, 1, d.len())

	got = d.expired(base.Add(100 * time.Millisecond))
	require.Equal(t, []uint32{3}, got)
	require.Equal(t, 0, d.len())
}

func TestDeadlineIndexRemove(t *testing.T) {
	base := time.Unix(0, 0)
	d := newDeadlineIndex()
	d.add(1, base.Add(10*time.Millisecond))
	d.add(2, base.Add(20*time.Millisecond))
	d.remove(1)
	require.Equal(t, 1, d.len())

	got := d.expired(base.Add(time.Hour))
	require.Equal(t, []uint32{2}, got)
}

func TestDeadlineIndexTiesBrokenByID(t *testing.T) {
	base := time.Unix(0, 0)
	d := newDeadlineIndex()
	d.add(5, base)
	d.add(2, base)
	d.add(9, base)

	got := d.expired(base)
	require.Equal(t, []uint32{2, 5, 9}, got)
}
