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
	"context"
	"testing"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/chubaofs/tchannel/proto"
)

// newBareConnection builds a Connection with all the state serve()'s
// handlers touch, but none of the network/handshake goroutines, so
// individual dispatch methods can be unit tested directly.
func newBareConnection(t *testing.T) *Connection {
	t.Helper()
	opts := Options{}
	opts.setDefaults("bare")
	peerCache, err := lru.New(16)
	require.NoError(t, err)
	return &Connection{
		opts:         opts,
		logger:       opts.Logger,
		clock:        opts.Clock,
		limiter:      rate.NewLimiter(rate.Limit(opts.SubmitQPS), opts.SubmitBurst),
		outIDs:       newIDAllocator(2),
		outCalls:     make(map[uint32]*outboundWait),
		inCalls:      make(map[uint32]*inboundCall),
		deadlines:    newDeadlineIndex(),
		outboundFC:   make(chan *proto.Frame, 16),
		closed:       make(chan struct{}),
		peerCache:    peerCache,
		pendingPings: make(map[uint32]pendingPing),
	}
}

// TestContinueForUnknownIDIsNotFatal covers the request side: a
// CallRequestContinue for an id the peer never opened replies with
// Error(bad-request) on that id and leaves the connection open.
func TestContinueForUnknownIDIsNotFatal(t *testing.T) {
	c := newBareConnection(t)
	err := c.onInboundContinue(42, &proto.ContinueBody{}, true)
	require.NoError(t, err, "an unknown-id continuation must not be treated as a fatal protocol violation")

	select {
	case f := <-c.outboundFC:
		eb, ok := f.Body.(*proto.ErrorBody)
		require.True(t, ok)
		require.Equal(t, proto.ErrorCodeBadRequest, eb.Code)
		require.Equal(t, uint32(42), f.ID)
	default:
		t.Fatal("expected an Error(bad-request) frame to be queued")
	}
}

func TestDuplicateCallRequestIDIsFatal(t *testing.T) {
	c := newBareConnection(t)
	req := &proto.CallRequest{TTL: 1000, ChecksumType: proto.ChecksumTypeNone, Flags: proto.FlagMoreFragments}
	require.NoError(t, c.onCallRequest(7, req))
	require.Equal(t, inboundOpen, c.inCalls[7].state)

	err := c.onCallRequest(7, req)
	require.Error(t, err)
	require.True(t, isFatal(err), "a duplicate id while the first call is still open must be fatal")
}

// TestResponseContinueForUnknownIDIsNotFatal covers §8 scenario 5 and
// mirrors TestContinueForUnknownIDIsNotFatal for the response side: a
// CallResponseContinue for an id with no pending outbound call replies
// with Error(bad-request) and leaves the connection open.
func TestResponseContinueForUnknownIDIsNotFatal(t *testing.T) {
	c := newBareConnection(t)
	err := c.onInboundContinue(42, &proto.ContinueBody{}, false)
	require.NoError(t, err)

	select {
	case f := <-c.outboundFC:
		eb, ok := f.Body.(*proto.ErrorBody)
		require.True(t, ok)
		require.Equal(t, proto.ErrorCodeBadRequest, eb.Code)
		require.Equal(t, uint32(42), f.ID)
	default:
		t.Fatal("expected an Error(bad-request) frame to be queued")
	}
}

// TestResponseContinueCompletesOutboundFuture covers the fragmented
// response path: a CallResponse that sets FlagMoreFragments must stash
// its partial reassembly where the matching CallResponseContinue can
// find it, and completing the reassembly must complete the future with
// the concatenated arg bytes.
func TestResponseContinueCompletesOutboundFuture(t *testing.T) {
	c := newBareConnection(t)
	future := newFuture()
	c.outCalls[9] = &outboundWait{future: future, onFinish: func(error) {}, startedAt: c.clock.Now()}

	first := &proto.CallResponse{
		Code:         proto.ResponseOK,
		ChecksumType: proto.ChecksumTypeNone,
		Flags:        proto.FlagMoreFragments,
		Arg3:         []byte("part1-"),
	}
	require.NoError(t, c.onCallResponse(9, first))
	_, ok := c.outCalls[9]
	require.True(t, ok, "call must remain open pending the continuation")

	select {
	case <-future.Done():
		t.Fatal("future must not complete before the continuation arrives")
	default:
	}

	cont := &proto.ContinueBody{ChecksumType: proto.ChecksumTypeNone, Arg3: []byte("part2")}
	require.NoError(t, c.onInboundContinue(9, cont, false))

	select {
	case <-future.Done():
	default:
		t.Fatal("future must complete once the response is fully reassembled")
	}
	resp, err := future.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("part1-part2"), resp.Arg3)
	_, ok = c.outCalls[9]
	require.False(t, ok)
}

func TestCancelCompletesOutboundFutureImmediately(t *testing.T) {
	c := newBareConnection(t)
	future := newFuture()
	c.outCalls[3] = &outboundWait{future: future, onFinish: func(error) {}}
	c.deadlines.add(3, time.Now().Add(time.Minute))

	c.onCancel(3)

	select {
	case <-future.Done():
	default:
		t.Fatal("future must complete synchronously on cancel")
	}
	_, err := future.Wait(context.Background())
	require.ErrorIs(t, err, ErrCancelled)
	_, ok := c.outCalls[3]
	require.False(t, ok)
}
