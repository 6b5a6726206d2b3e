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

// ContinueBody is shared by CallRequestContinue and CallResponseContinue
// frames: flags, checksumType/checksum, then the next slice of arg bytes
// for whichever args are not yet fully sent (zero-length for args that
// are already complete), per §3.
type ContinueBody struct {
	kind         FrameType
	Flags        uint8
	ChecksumType ChecksumType
	Checksum     uint32
	Arg1         []byte
	Arg2         []byte
	Arg3         []byte
}

// NewCallRequestContinue builds an empty CallRequestContinue body.
func NewCallRequestContinue() *ContinueBody {
	return &ContinueBody{kind: FrameTypeCallRequestContinue}
}

// NewCallResponseContinue builds an empty CallResponseContinue body.
func NewCallResponseContinue() *ContinueBody {
	return &ContinueBody{kind: FrameTypeCallResponseContinue}
}

func (b *ContinueBody) FrameType() FrameType { return b.kind }

func (b *ContinueBody) More() bool { return hasMore(b.Flags) }

func (b *ContinueBody) marshal(w *writer) error {
	w.uint8(b.Flags)
	if !b.ChecksumType.Valid() {
		return newProtocolError("invalid checksum type")
	}
	w.uint8(uint8(b.ChecksumType))
	if b.ChecksumType != ChecksumTypeNone {
		w.uint32(b.Checksum)
	}
	if err := w.arg16(b.Arg1); err != nil {
		return err
	}
	if err := w.arg16(b.Arg2); err != nil {
		return err
	}
	return w.arg16(b.Arg3)
}

func (b *ContinueBody) unmarshal(r *reader) error {
	var err error
	if b.Flags, err = r.uint8(); err != nil {
		return err
	}
	ct, err := r.uint8()
	if err != nil {
		return err
	}
	b.ChecksumType = ChecksumType(ct)
	if !b.ChecksumType.Valid() {
		return newProtocolError("invalid checksum type")
	}
	if b.ChecksumType != ChecksumTypeNone {
		if b.Checksum, err = r.uint32(); err != nil {
			return err
		}
	}
	if b.Arg1, err = r.arg16(); err != nil {
		return err
	}
	if b.Arg2, err = r.arg16(); err != nil {
		return err
	}
	if b.Arg3, err = r.arg16(); err != nil {
		return err
	}
	return nil
}
