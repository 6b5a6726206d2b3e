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

// Headers is a string->string header map, used both for init handshake
// headers (§4.2) and call transport headers (§3).
type Headers map[string]string

// writeInitHeaders encodes nh (uint16) pairs of uint16-length-prefixed
// strings, per §3.
func writeInitHeaders(w *writer, h Headers) error {
	if len(h) > 65535 {
		return newProtocolError("too many init headers")
	}
	w.uint16(uint16(len(h)))
	for k, v := range h {
		if err := w.str16(k); err != nil {
			return err
		}
		if err := w.str16(v); err != nil {
			return err
		}
	}
	return nil
}

func readInitHeaders(r *reader) (Headers, error) {
	nh, err := r.uint16()
	if err != nil {
		return nil, err
	}
	h := make(Headers, nh)
	for i := 0; i < int(nh); i++ {
		k, err := r.str16()
		if err != nil {
			return nil, err
		}
		v, err := r.str16()
		if err != nil {
			return nil, err
		}
		h[k] = v
	}
	return h, nil
}

// writeTransportHeaders encodes nh (uint8) pairs of uint8-length-prefixed
// strings, the format call-request/call-response frames use for their
// transport header block (§3).
func writeTransportHeaders(w *writer, h Headers) error {
	if len(h) > 255 {
		return newProtocolError("too many transport headers")
	}
	w.uint8(uint8(len(h)))
	for k, v := range h {
		if err := w.str8(k); err != nil {
			return err
		}
		if err := w.str8(v); err != nil {
			return err
		}
	}
	return nil
}

func readTransportHeaders(r *reader) (Headers, error) {
	nh, err := r.uint8()
	if err != nil {
		return nil, err
	}
	h := make(Headers, nh)
	for i := 0; i < int(nh); i++ {
		k, err := r.str8()
		if err != nil {
			return nil, err
		}
		v, err := r.str8()
		if err != nil {
			return nil, err
		}
		h[k] = v
	}
	return h, nil
}

// Clone returns a shallow copy of h.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
