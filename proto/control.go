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

// PingBody is the (empty) body of PingRequest/PingResponse frames; the
// frame envelope's id is what correlates a response to its request
// (§4.4).
type PingBody struct {
	kind FrameType
}

func NewPingRequest() *PingBody  { return &PingBody{kind: FrameTypePingRequest} }
func NewPingResponse() *PingBody { return &PingBody{kind: FrameTypePingResponse} }

func (b *PingBody) FrameType() FrameType        { return b.kind }
func (b *PingBody) marshal(w *writer) error     { return nil }
func (b *PingBody) unmarshal(r *reader) error   { return nil }

// CancelBody is the (empty) body of a Cancel frame; it targets the
// outstanding call sharing the frame's id (§4.4).
type CancelBody struct{}

func (b *CancelBody) FrameType() FrameType      { return FrameTypeCancel }
func (b *CancelBody) marshal(w *writer) error   { return nil }
func (b *CancelBody) unmarshal(r *reader) error { return nil }

// ClaimBody is the (empty) body of a Claim frame. spec.md does not define
// fields beyond the frame type itself; implemented as a bare marker frame
// so the codec round-trips it without guessing at an undocumented payload.
type ClaimBody struct{}

func (b *ClaimBody) FrameType() FrameType      { return FrameTypeClaim }
func (b *ClaimBody) marshal(w *writer) error   { return nil }
func (b *ClaimBody) unmarshal(r *reader) error { return nil }
