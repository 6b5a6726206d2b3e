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

// FlagMoreFragments is bit 0 of a call/continue frame's flags byte: set
// when more fragments for this call follow (§3).
const FlagMoreFragments uint8 = 0x01

func hasMore(flags uint8) bool { return flags&FlagMoreFragments != 0 }

// CallRequest is the body of a CallRequest frame (§3).
type CallRequest struct {
	Flags        uint8
	TTL          uint32
	Tracing      Tracing
	Service      string
	Headers      Headers
	ChecksumType ChecksumType
	Checksum     uint32
	Arg1         []byte
	Arg2         []byte
	Arg3         []byte
}

func (b *CallRequest) FrameType() FrameType { return FrameTypeCallRequest }

// More reports whether more fragments follow this one.
func (b *CallRequest) More() bool { return hasMore(b.Flags) }

func (b *CallRequest) marshal(w *writer) error {
	w.uint8(b.Flags)
	w.uint32(b.TTL)
	writeTracing(w, b.Tracing)
	if len(b.Service) > MaxServiceName {
		return newProtocolError("service name exceeds 255 bytes")
	}
	if err := w.str8(b.Service); err != nil {
		return err
	}
	if err := writeTransportHeaders(w, b.Headers); err != nil {
		return err
	}
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

func (b *CallRequest) unmarshal(r *reader) error {
	var err error
	if b.Flags, err = r.uint8(); err != nil {
		return err
	}
	if b.TTL, err = r.uint32(); err != nil {
		return err
	}
	if b.Tracing, err = readTracing(r); err != nil {
		return err
	}
	if b.Service, err = r.str8(); err != nil {
		return err
	}
	if b.Headers, err = readTransportHeaders(r); err != nil {
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

// CallResponse is the body of a CallResponse frame (§3).
type CallResponse struct {
	Flags        uint8
	Code         ResponseCode
	Tracing      Tracing
	Headers      Headers
	ChecksumType ChecksumType
	Checksum     uint32
	Arg1         []byte
	Arg2         []byte
	Arg3         []byte
}

func (b *CallResponse) FrameType() FrameType { return FrameTypeCallResponse }

func (b *CallResponse) More() bool { return hasMore(b.Flags) }

func (b *CallResponse) marshal(w *writer) error {
	w.uint8(b.Flags)
	w.uint8(uint8(b.Code))
	writeTracing(w, b.Tracing)
	if err := writeTransportHeaders(w, b.Headers); err != nil {
		return err
	}
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

func (b *CallResponse) unmarshal(r *reader) error {
	var err error
	if b.Flags, err = r.uint8(); err != nil {
		return err
	}
	code, err := r.uint8()
	if err != nil {
		return err
	}
	b.Code = ResponseCode(code)
	if b.Tracing, err = readTracing(r); err != nil {
		return err
	}
	if b.Headers, err = readTransportHeaders(r); err != nil {
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
