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

// FrameBody is implemented by every frame body variant (§3).
type FrameBody interface {
	FrameType() FrameType
	marshal(w *writer) error
	unmarshal(r *reader) error
}

// Frame is a single unit on the wire: the 16-byte envelope plus a typed
// body (§3).
type Frame struct {
	ID   uint32
	Body FrameBody
}

// Type returns the frame's wire type, delegating to the body.
func (f *Frame) Type() FrameType {
	if f.Body == nil {
		return 0
	}
	return f.Body.FrameType()
}

func newBodyForType(t FrameType) (FrameBody, error) {
	switch t {
	case FrameTypeInitRequest, FrameTypeInitResponse:
		return &InitBody{kind: t}, nil
	case FrameTypeCallRequest:
		return &CallRequest{}, nil
	case FrameTypeCallResponse:
		return &CallResponse{}, nil
	case FrameTypeCallRequestContinue, FrameTypeCallResponseContinue:
		return &ContinueBody{kind: t}, nil
	case FrameTypeCancel:
		return &CancelBody{}, nil
	case FrameTypeClaim:
		return &ClaimBody{}, nil
	case FrameTypePingRequest, FrameTypePingResponse:
		return &PingBody{kind: t}, nil
	case FrameTypeError:
		return &ErrorBody{}, nil
	default:
		return nil, newProtocolError("unknown frame type")
	}
}
