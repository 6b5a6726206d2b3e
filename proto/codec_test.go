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

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripInit(t *testing.T) {
	f := &Frame{ID: 1, Body: NewInitRequest("127.0.0.1:4040", "svc-a")}
	buf, err := Encode(f)
	require.NoError(t, err)

	got, n, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, f.ID, got.ID)
	require.Equal(t, f.Type(), got.Type())

	gotBody := got.Body.(*InitBody)
	wantBody := f.Body.(*InitBody)
	require.Equal(t, wantBody.Version, gotBody.Version)
	require.Equal(t, wantBody.Headers, gotBody.Headers)
}

func TestRoundTripCallRequest(t *testing.T) {
	req := &CallRequest{
		TTL:          1000,
		Tracing:      Tracing{SpanID: 1, ParentID: 2, TraceID: 3, TraceFlags: 1},
		Service:      "svc",
		Headers:      Headers{"cn": "caller"},
		ChecksumType: ChecksumTypeCRC32,
		Checksum:     42,
		Arg1:         []byte("op"),
		Arg2:         []byte{},
		Arg3:         []byte(`{"a":1}`),
	}
	f := &Frame{ID: 2, Body: req}
	buf, err := Encode(f)
	require.NoError(t, err)

	got, n, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	gotReq := got.Body.(*CallRequest)
	require.Equal(t, req.TTL, gotReq.TTL)
	require.Equal(t, req.Tracing, gotReq.Tracing)
	require.Equal(t, req.Service, gotReq.Service)
	require.Equal(t, req.Headers, gotReq.Headers)
	require.Equal(t, req.ChecksumType, gotReq.ChecksumType)
	require.Equal(t, req.Checksum, gotReq.Checksum)
	require.Equal(t, req.Arg1, gotReq.Arg1)
	require.Equal(t, []byte{}, gotReq.Arg2)
	require.Equal(t, req.Arg3, gotReq.Arg3)
}

func TestRoundTripCallResponseAndContinue(t *testing.T) {
	res := &CallResponse{
		Code:         ResponseOK,
		ChecksumType: ChecksumTypeNone,
		Arg3:         []byte("ok"),
	}
	f := &Frame{ID: 2, Body: res}
	buf, err := Encode(f)
	require.NoError(t, err)
	got, _, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, res.Code, got.Body.(*CallResponse).Code)
	require.Equal(t, res.Arg3, got.Body.(*CallResponse).Arg3)

	cont := NewCallResponseContinue()
	cont.ChecksumType = ChecksumTypeCRC32C
	cont.Arg3 = []byte("more")
	f2 := &Frame{ID: 2, Body: cont}
	buf2, err := Encode(f2)
	require.NoError(t, err)
	got2, _, err := Decode(buf2)
	require.NoError(t, err)
	gotCont := got2.Body.(*ContinueBody)
	require.Equal(t, FrameTypeCallResponseContinue, gotCont.FrameType())
	require.Equal(t, cont.Arg3, gotCont.Arg3)
}

func TestRoundTripError(t *testing.T) {
	f := &Frame{ID: 99, Body: NewErrorBody(ErrorCodeBadRequest, Tracing{TraceID: 7}, "bad request")}
	buf, err := Encode(f)
	require.NoError(t, err)
	got, _, err := Decode(buf)
	require.NoError(t, err)
	eb := got.Body.(*ErrorBody)
	require.Equal(t, ErrorCodeBadRequest, eb.Code)
	require.Equal(t, "bad request", eb.Message)
	require.Equal(t, uint64(7), eb.Tracing.TraceID)
}

func TestRoundTripPingCancelClaim(t *testing.T) {
	for _, body := range []FrameBody{NewPingRequest(), NewPingResponse(), &CancelBody{}, &ClaimBody{}} {
		f := &Frame{ID: 5, Body: body}
		buf, err := Encode(f)
		require.NoError(t, err)
		got, _, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, body.FrameType(), got.Type())
	}
}

// TestSizeField asserts the emitted frame's first two bytes equal its
// total byte length (§8 "Size field").
func TestSizeField(t *testing.T) {
	f := &Frame{ID: 1, Body: NewInitRequest("1.2.3.4:1", "p")}
	buf, err := Encode(f)
	require.NoError(t, err)
	size := binary.BigEndian.Uint16(buf[:2])
	require.Equal(t, len(buf), int(size))
}

func TestDecodeIncomplete(t *testing.T) {
	f := &Frame{ID: 1, Body: NewInitRequest("1.2.3.4:1", "p")}
	buf, err := Encode(f)
	require.NoError(t, err)

	_, _, err = Decode(buf[:1])
	require.ErrorIs(t, err, ErrIncomplete)

	_, _, err = Decode(buf[:len(buf)-1])
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestDecodeUnknownTypeIsProtocolError(t *testing.T) {
	f := &Frame{ID: 1, Body: NewInitRequest("1.2.3.4:1", "p")}
	buf, err := Encode(f)
	require.NoError(t, err)
	buf[2] = 0x77 // not a known frame type
	_, _, err = Decode(buf)
	require.Error(t, err)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
}

func TestEncodeRefusesOversizeBody(t *testing.T) {
	req := &CallRequest{
		ChecksumType: ChecksumTypeNone,
		Arg3:         make([]byte, MaxFrameBody+10),
	}
	_, err := Encode(&Frame{ID: 1, Body: req})
	require.Error(t, err)
}

func TestEncodeRejectsOverlongStrings(t *testing.T) {
	long := make([]byte, 300)
	req := &CallRequest{ChecksumType: ChecksumTypeNone, Service: string(long)}
	_, err := Encode(&Frame{ID: 1, Body: req})
	require.Error(t, err)
}
