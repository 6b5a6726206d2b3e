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

import "encoding/binary"

// Decode peeks the 2-byte size field and, once `size` bytes are buffered,
// parses the envelope and dispatches the body by type (§4.1). It returns
// ErrIncomplete if fewer than `size` bytes are available yet; callers
// should buffer more and retry. The returned int is the number of bytes
// consumed from buf on success.
func Decode(buf []byte) (*Frame, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrIncomplete
	}
	size := binary.BigEndian.Uint16(buf[:2])
	if int(size) < FrameHeaderSize {
		return nil, 0, newProtocolError("frame size smaller than envelope")
	}
	if len(buf) < int(size) {
		return nil, 0, ErrIncomplete
	}
	envelope := buf[:size]
	frameType := FrameType(envelope[2])
	// envelope[3] reserved, ignored on reception per §6.
	id := binary.BigEndian.Uint32(envelope[4:8])
	// envelope[8:16] reserved, ignored on reception per §6.
	bodyBytes := envelope[FrameHeaderSize:size]

	body, err := newBodyForType(frameType)
	if err != nil {
		return nil, 0, err
	}
	r := newReader(bodyBytes)
	if err := body.unmarshal(r); err != nil {
		return nil, 0, err
	}
	if !r.atEnd() {
		return nil, 0, newProtocolError("trailing bytes in frame body")
	}
	return &Frame{ID: id, Body: body}, int(size), nil
}

// Encode writes the envelope (with a computed `size` field) followed by
// the marshaled body (§4.1). It refuses to emit a frame whose body would
// exceed MaxFrameBody (65519 bytes) — callers must fragment first.
func Encode(f *Frame) ([]byte, error) {
	w := newWriter(256)
	if err := f.Body.marshal(w); err != nil {
		return nil, err
	}
	body := w.bytes()
	if len(body) > MaxFrameBody {
		return nil, newProtocolError("encoded body exceeds max frame size, caller must fragment")
	}
	size := FrameHeaderSize + len(body)

	out := make([]byte, size)
	binary.BigEndian.PutUint16(out[0:2], uint16(size))
	out[2] = byte(f.Type())
	out[3] = 0
	binary.BigEndian.PutUint32(out[4:8], f.ID)
	// out[8:16] reserved, zero per §6.
	copy(out[FrameHeaderSize:], body)
	return out, nil
}
