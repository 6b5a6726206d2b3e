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

package proto

import "hash/crc32"

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// ChecksumSeed computes the checksum for a fragment's emitted argument
// bytes, chained from the previous fragment's digest (seed 0 for the
// first fragment of a call), per §3's invariant on checksum chaining.
func ChecksumSeed(t ChecksumType, seed uint32, data []byte) (uint32, error) {
	switch t {
	case ChecksumTypeNone:
		return 0, nil
	case ChecksumTypeCRC32:
		return crc32.Update(seed, crc32.IEEETable, data), nil
	case ChecksumTypeCRC32C:
		return crc32.Update(seed, crc32cTable, data), nil
	case ChecksumTypeFarmhash32:
		return farmhash32Seed(seed, data), nil
	default:
		return 0, newProtocolError("unknown checksum type")
	}
}

// farmhash32Seed mixes data into a running 32-bit digest seeded by the
// prior fragment's output.
//
// TODO: no farmhash Go library exists anywhere in the example corpus this
// module was grounded on; this is a FNV-1a-derived stand-in pending
// verification against a real farmhash32 reference peer (spec §9 open
// question on checksum chaining explicitly calls this out as unverified).
func farmhash32Seed(seed uint32, data []byte) uint32 {
	const prime = 16777619
	h := seed
	for _, b := range data {
		h ^= uint32(b)
		h *= prime
	}
	return h
}
