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
	"fmt"

	"github.com/chubaofs/tchannel/proto"
)

// outboundCall is the logical request a caller submits; the disassembler
// turns it into one or more wire frames (§4.3 "Outgoing").
type outboundCall struct {
	Service      string
	Headers      proto.Headers
	Tracing      proto.Tracing
	TTLMillis    uint32
	ChecksumType proto.ChecksumType
	Arg1         []byte
	Arg2         []byte
	Arg3         []byte
}

// disassembleRequest fragments a logical call into a CallRequest frame
// followed by zero or more CallRequestContinue frames, each sized to fit
// within proto.MaxFrameSize, chaining the checksum across fragments per
// §3's invariant and §4.3 step 4.
func disassembleRequest(id uint32, call outboundCall) ([]*proto.Frame, error) {
	if call.TTLMillis == 0 {
		return nil, newCallError(proto.ErrorCodeBadRequest, "ttl must be > 0")
	}
	if len(call.Arg1) > proto.MaxArg1Size {
		return nil, newCallError(proto.ErrorCodeBadRequest, "arg1 exceeds %d bytes", proto.MaxArg1Size)
	}

	first := &proto.CallRequest{
		TTL:          call.TTLMillis,
		Tracing:      call.Tracing,
		Service:      call.Service,
		Headers:      call.Headers,
		ChecksumType: call.ChecksumType,
		Arg1:         call.Arg1,
	}
	baseSize, err := encodedSize(id, first)
	if err != nil {
		return nil, err
	}
	budget := proto.MaxFrameSize - baseSize
	if budget < 0 {
		return nil, newCallError(proto.ErrorCodeBadRequest, "service name and headers leave no room for call args")
	}

	arg2, arg3 := call.Arg2, call.Arg3
	n2 := min(len(arg2), budget)
	budget -= n2
	n3 := min(len(arg3), budget)

	first.Arg2 = arg2[:n2]
	first.Arg3 = arg3[:n3]
	arg2, arg3 = arg2[n2:], arg3[n3:]

	more := len(arg2) > 0 || len(arg3) > 0
	if more {
		first.Flags |= proto.FlagMoreFragments
	}
	seed, err := proto.ChecksumSeed(call.ChecksumType, 0, concat(call.Arg1, first.Arg2, first.Arg3))
	if err != nil {
		return nil, err
	}
	first.Checksum = seed

	frames := []*proto.Frame{{ID: id, Body: first}}

	for more {
		cont := proto.NewCallRequestContinue()
		cont.ChecksumType = call.ChecksumType
		baseSize, err = encodedSize(id, cont)
		if err != nil {
			return nil, err
		}
		budget = proto.MaxFrameSize - baseSize
		if budget <= 0 {
			return nil, newCallError(proto.ErrorCodeBadRequest, "checksum leaves no room for continuation args")
		}
		n2 = min(len(arg2), budget)
		budget -= n2
		n3 = min(len(arg3), budget)

		cont.Arg2 = arg2[:n2]
		cont.Arg3 = arg3[:n3]
		arg2, arg3 = arg2[n2:], arg3[n3:]

		more = len(arg2) > 0 || len(arg3) > 0
		if more {
			cont.Flags |= proto.FlagMoreFragments
		}
		seed, err = proto.ChecksumSeed(call.ChecksumType, seed, concat(cont.Arg2, cont.Arg3))
		if err != nil {
			return nil, err
		}
		cont.Checksum = seed

		frames = append(frames, &proto.Frame{ID: id, Body: cont})
	}

	return frames, nil
}

// outboundResponse mirrors outboundCall for the reply direction (§3 "Call
// response frame"); arg1 is conventionally empty.
type outboundResponse struct {
	Code         proto.ResponseCode
	Headers      proto.Headers
	Tracing      proto.Tracing
	ChecksumType proto.ChecksumType
	Arg2         []byte
	Arg3         []byte
}

// disassembleResponse is the response-side counterpart of disassembleRequest.
func disassembleResponse(id uint32, resp outboundResponse) ([]*proto.Frame, error) {
	first := &proto.CallResponse{
		Code:         resp.Code,
		Tracing:      resp.Tracing,
		Headers:      resp.Headers,
		ChecksumType: resp.ChecksumType,
	}
	baseSize, err := encodedSize(id, first)
	if err != nil {
		return nil, err
	}
	budget := proto.MaxFrameSize - baseSize
	if budget < 0 {
		return nil, newCallError(proto.ErrorCodeBadRequest, "headers leave no room for response args")
	}

	arg2, arg3 := resp.Arg2, resp.Arg3
	n2 := min(len(arg2), budget)
	budget -= n2
	n3 := min(len(arg3), budget)

	first.Arg2 = arg2[:n2]
	first.Arg3 = arg3[:n3]
	arg2, arg3 = arg2[n2:], arg3[n3:]

	more := len(arg2) > 0 || len(arg3) > 0
	if more {
		first.Flags |= proto.FlagMoreFragments
	}
	seed, err := proto.ChecksumSeed(resp.ChecksumType, 0, concat(first.Arg2, first.Arg3))
	if err != nil {
		return nil, err
	}
	first.Checksum = seed

	frames := []*proto.Frame{{ID: id, Body: first}}

	for more {
		cont := proto.NewCallResponseContinue()
		cont.ChecksumType = resp.ChecksumType
		baseSize, err = encodedSize(id, cont)
		if err != nil {
			return nil, err
		}
		budget = proto.MaxFrameSize - baseSize
		if budget <= 0 {
			return nil, newCallError(proto.ErrorCodeBadRequest, "checksum leaves no room for continuation args")
		}
		n2 = min(len(arg2), budget)
		budget -= n2
		n3 = min(len(arg3), budget)

		cont.Arg2 = arg2[:n2]
		cont.Arg3 = arg3[:n3]
		arg2, arg3 = arg2[n2:], arg3[n3:]

		more = len(arg2) > 0 || len(arg3) > 0
		if more {
			cont.Flags |= proto.FlagMoreFragments
		}
		seed, err = proto.ChecksumSeed(resp.ChecksumType, seed, concat(cont.Arg2, cont.Arg3))
		if err != nil {
			return nil, err
		}
		cont.Checksum = seed

		frames = append(frames, &proto.Frame{ID: id, Body: cont})
	}

	return frames, nil
}

func encodedSize(id uint32, body proto.FrameBody) (int, error) {
	buf, err := proto.Encode(&proto.Frame{ID: id, Body: body})
	if err != nil {
		return 0, fmt.Errorf("tchannel: measuring fragment size: %w", err)
	}
	return len(buf), nil
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
