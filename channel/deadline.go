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
	"time"

	"github.com/google/btree"
)

// deadlineItem orders call ids by their ttl deadline, breaking ties by id
// so the btree gives a total order even when two calls share a deadline.
type deadlineItem struct {
	deadline time.Time
	id       uint32
}

func (d deadlineItem) Less(than btree.Item) bool {
	o := than.(deadlineItem)
	if d.deadline.Equal(o.deadline) {
		return d.id < o.id
	}
	return d.deadline.Before(o.deadline)
}

// deadlineIndex is the "min-heap of deadlines for timeout sweeping" of
// §4.4, backed by a B-tree keyed by (deadline, id) so tick can repeatedly
// pop the earliest-expiring call in O(log n).
type deadlineIndex struct {
	tree *btree.BTree
	byID map[uint32]deadlineItem
}

func newDeadlineIndex() *deadlineIndex {
	return &deadlineIndex{tree: btree.New(32), byID: make(map[uint32]deadlineItem)}
}

func (d *deadlineIndex) add(id uint32, deadline time.Time) {
	item := deadlineItem{deadline: deadline, id: id}
	d.tree.ReplaceOrInsert(item)
	d.byID[id] = item
}

func (d *deadlineIndex) remove(id uint32) {
	item, ok := d.byID[id]
	if !ok {
		return
	}
	d.tree.Delete(item)
	delete(d.byID, id)
}

// expired pops every id whose deadline is <= now, earliest first.
func (d *deadlineIndex) expired(now time.Time) []uint32 {
	var ids []uint32
	for {
		min := d.tree.Min()
		if min == nil {
			break
		}
		item := min.(deadlineItem)
		if item.deadline.After(now) {
			break
		}
		d.tree.DeleteMin()
		delete(d.byID, item.id)
		ids = append(ids, item.id)
	}
	return ids
}

func (d *deadlineIndex) len() int { return d.tree.Len() }
