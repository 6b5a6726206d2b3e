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

	"github.com/chubaofs/tchannel/proto"
)

// inboundState is the per-id state machine of §4.3 "Incoming".
type inboundState int

const (
	inboundOpen inboundState = iota
	inboundDone
	inboundCancelled
	inboundFailed
)

// inboundCall accumulates the fragments of one in-flight incoming call,
// whether it is a CallRequest (server side) or a CallResponse (client
// side reassembling a reply).
type inboundCall struct {
	id           uint32
	state        inboundState
	checksumType proto.ChecksumType
	seed         uint32
	arg1         []byte
	arg2         []byte
	arg3         []byte
	service      string
	headers      proto.Headers
	tracing      proto.Tracing
	responseCode proto.ResponseCode
	deadline     time.Time
}

// newInboundRequest opens reassembly state for a fresh CallRequest,
// validating the fields §4.3 calls out: ttl > 0, arg1 within bound, and
// the first fragment's checksum.
func newInboundRequest(id uint32, req *proto.CallRequest, now time.Time) (*inboundCall, error) {
	if req.TTL == 0 {
		return nil, newCallError(proto.ErrorCodeBadRequest, "ttl must be > 0")
	}
	if len(req.Arg1) > proto.MaxArg1Size {
		return nil, newCallError(proto.ErrorCodeBadRequest, "arg1 exceeds %d bytes", proto.MaxArg1Size)
	}
	seed, err := proto.ChecksumSeed(req.ChecksumType, 0, concat(req.Arg1, req.Arg2, req.Arg3))
	if err != nil {
		return nil, newCallError(proto.ErrorCodeBadRequest, "invalid checksum type")
	}
	if seed != req.Checksum {
		return nil, newCallError(proto.ErrorCodeBadRequest, "checksum mismatch on first fragment")
	}
	c := &inboundCall{
		id:           id,
		checksumType: req.ChecksumType,
		seed:         seed,
		arg1:         append([]byte(nil), req.Arg1...),
		arg2:         append([]byte(nil), req.Arg2...),
		arg3:         append([]byte(nil), req.Arg3...),
		service:      req.Service,
		headers:      req.Headers,
		tracing:      req.Tracing,
		deadline:     now.Add(time.Duration(req.TTL) * time.Millisecond),
	}
	c.state = terminalOr(inboundOpen, inboundDone, req.More())
	return c, nil
}

// newInboundResponse opens reassembly state for a fresh CallResponse,
// matched against the deadline already established when the
// corresponding outbound call was submitted.
func newInboundResponse(id uint32, resp *proto.CallResponse, deadline time.Time) (*inboundCall, error) {
	seed, err := proto.ChecksumSeed(resp.ChecksumType, 0, concat(resp.Arg1, resp.Arg2, resp.Arg3))
	if err != nil {
		return nil, newCallError(proto.ErrorCodeBadRequest, "invalid checksum type")
	}
	if seed != resp.Checksum {
		return nil, newCallError(proto.ErrorCodeBadRequest, "checksum mismatch on first fragment")
	}
	c := &inboundCall{
		id:           id,
		checksumType: resp.ChecksumType,
		seed:         seed,
		arg1:         append([]byte(nil), resp.Arg1...),
		arg2:         append([]byte(nil), resp.Arg2...),
		arg3:         append([]byte(nil), resp.Arg3...),
		headers:      resp.Headers,
		tracing:      resp.Tracing,
		responseCode: resp.Code,
		deadline:     deadline,
	}
	c.state = terminalOr(inboundOpen, inboundDone, resp.More())
	return c, nil
}

func terminalOr(open, done inboundState, more bool) inboundState {
	if more {
		return open
	}
	return done
}

// applyContinue folds a CallRequestContinue/CallResponseContinue fragment
// into the accumulated call, enforcing §4.3's per-fragment validation:
// matching checksumType, no arg1 bytes after the first fragment, and a
// verified chained checksum.
func (c *inboundCall) applyContinue(cont *proto.ContinueBody) error {
	if c.state != inboundOpen {
		return newCallError(proto.ErrorCodeBadRequest, "continue for call not open")
	}
	if cont.ChecksumType != c.checksumType {
		return newCallError(proto.ErrorCodeBadRequest, "checksum type changed mid-call")
	}
	if len(cont.Arg1) > 0 {
		return newCallError(proto.ErrorCodeBadRequest, "arg1 bytes after first fragment")
	}
	seed, err := proto.ChecksumSeed(c.checksumType, c.seed, concat(cont.Arg2, cont.Arg3))
	if err != nil {
		return newCallError(proto.ErrorCodeBadRequest, "invalid checksum type")
	}
	if seed != cont.Checksum {
		return newCallError(proto.ErrorCodeBadRequest, "checksum mismatch")
	}
	c.seed = seed
	c.arg2 = append(c.arg2, cont.Arg2...)
	c.arg3 = append(c.arg3, cont.Arg3...)
	c.state = terminalOr(inboundOpen, inboundDone, cont.More())
	return nil
}

func (c *inboundCall) response() *Response {
	return &Response{Code: c.responseCode, Arg2: c.arg2, Arg3: c.arg3}
}
