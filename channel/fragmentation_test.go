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
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chubaofs/tchannel/proto"
)

// reassembleRequestFrames feeds the frames disassembleRequest produced
// back through the reassembler, as the receiving side's serve loop would.
func reassembleRequestFrames(t *testing.T, frames []*proto.Frame) *inboundCall {
	t.Helper()
	require.NotEmpty(t, frames)
	first, ok := frames[0].Body.(*proto.CallRequest)
	require.True(t, ok)
	call, err := newInboundRequest(frames[0].ID, first, time.Unix(0, 0))
	require.NoError(t, err)
	for _, f := range frames[1:] {
		cont, ok := f.Body.(*proto.ContinueBody)
		require.True(t, ok)
		require.NoError(t, call.applyContinue(cont))
	}
	require.Equal(t, inboundDone, call.state)
	return call
}

func TestDisassembleReassembleUnfragmented(t *testing.T) {
	call := outboundCall{
		Service:      "echo",
		Headers:      proto.Headers{"cn": "caller"},
		TTLMillis:    1000,
		ChecksumType: proto.ChecksumTypeCRC32,
		Arg1:         []byte("op"),
		Arg2:         []byte(`{"k":"v"}`),
		Arg3:         []byte("payload"),
	}
	frames, err := disassembleRequest(7, call)
	require.NoError(t, err)
	require.Len(t, frames, 1, "small call must fit in a single frame")

	got := reassembleRequestFrames(t, frames)
	require.Equal(t, call.Arg1, got.arg1)
	require.Equal(t, call.Arg2, got.arg2)
	require.Equal(t, call.Arg3, got.arg3)
	require.Equal(t, call.Service, got.service)
}

func TestDisassembleReassembleFragmented(t *testing.T) {
	arg3 := bytes.Repeat([]byte("0123456789abcdef"), 70000/16+1)[:70000]
	call := outboundCall{
		Service:      "bigcall",
		TTLMillis:    5000,
		ChecksumType: proto.ChecksumTypeCRC32,
		Arg1:         []byte("op"),
		Arg2:         []byte("small-arg2"),
		Arg3:         arg3,
	}
	frames, err := disassembleRequest(11, call)
	require.NoError(t, err)
	require.Greater(t, len(frames), 1, "70000-byte arg3 must not fit in one frame")

	for _, f := range frames {
		buf, err := proto.Encode(f)
		require.NoError(t, err)
		require.LessOrEqual(t, len(buf), proto.MaxFrameSize)
	}

	got := reassembleRequestFrames(t, frames)
	require.Equal(t, call.Arg1, got.arg1)
	require.Equal(t, call.Arg2, got.arg2)
	require.True(t, bytes.Equal(call.Arg3, got.arg3), "reassembled arg3 must match byte-for-byte")
}

func TestDisassembleReassembleResponseFragmented(t *testing.T) {
	arg3 := bytes.Repeat([]byte("response-body-"), 10000)
	resp := outboundResponse{
		Code:         proto.ResponseOK,
		ChecksumType: proto.ChecksumTypeCRC32C,
		Arg2:         []byte("hdrs"),
		Arg3:         arg3,
	}
	frames, err := disassembleResponse(3, resp)
	require.NoError(t, err)
	require.Greater(t, len(frames), 1)

	first, ok := frames[0].Body.(*proto.CallResponse)
	require.True(t, ok)
	call, err := newInboundResponse(3, first, time.Unix(0, 0).Add(time.Minute))
	require.NoError(t, err)
	for _, f := range frames[1:] {
		cont := f.Body.(*proto.ContinueBody)
		require.NoError(t, call.applyContinue(cont))
	}
	require.Equal(t, inboundDone, call.state)
	require.True(t, bytes.Equal(resp.Arg3, call.arg3))
	require.Equal(t, resp.Code, call.responseCode)
}

func TestReassemblerRejectsChecksumMismatch(t *testing.T) {
	req := &proto.CallRequest{
		TTL:          1000,
		ChecksumType: proto.ChecksumTypeCRC32,
		Checksum:     0xdeadbeef, // wrong on purpose
		Arg2:         []byte("x"),
	}
	_, err := newInboundRequest(1, req, time.Unix(0, 0))
	require.Error(t, err)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, proto.ErrorCodeBadRequest, ce.Code)
}

func TestReassemblerRejectsContinueAfterDone(t *testing.T) {
	req := &proto.CallRequest{TTL: 1000, ChecksumType: proto.ChecksumTypeNone}
	call, err := newInboundRequest(1, req, time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, inboundDone, call.state) // no More() flag set

	err = call.applyContinue(&proto.ContinueBody{ChecksumType: proto.ChecksumTypeNone})
	require.Error(t, err)
}
