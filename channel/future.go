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

	"github.com/chubaofs/tchannel/proto"
)

// Response is the reassembled result of a completed call (§3 "In-flight
// call record" on terminal delivery, ownership of the arg buffers
// transfers to the caller).
type Response struct {
	Code proto.ResponseCode
	Arg2 []byte
	Arg3 []byte
}

// Future signals a call's completion exactly once, on the terminal
// transition of the call's state machine (§9 "Callbacks for call
// completion" design note: model as a single-fire completion signal
// rather than a callback attached to the source's future type).
type Future struct {
	done    chan struct{}
	resp    *Response
	err     error
	id      uint32
	idReady chan struct{}
}

func newFuture() *Future {
	return &Future{done: make(chan struct{}), idReady: make(chan struct{})}
}

// setID records the id the connection assigned this call. Only the first
// call has any effect: the submit path calls it exactly once, whether
// the call was allocated an id or failed before one was needed.
func (f *Future) setID(id uint32) {
	select {
	case <-f.idReady:
		return
	default:
	}
	f.id = id
	close(f.idReady)
}

// ID returns the id the connection assigned this call, for use with
// Connection.Cancel. It blocks until Submit's enqueued request has been
// processed by the connection's serve loop, or ctx is done first, in
// which case it returns 0 and ctx.Err(). If the serve loop failed the
// call before allocating an id (e.g. no free id, or a disassembly
// error), it returns 0 and a nil error.
func (f *Future) ID(ctx context.Context) (uint32, error) {
	select {
	case <-f.idReady:
		return f.id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// complete fires the future. Only the first call has any effect; a
// terminal transition happens exactly once per call by construction of
// the reassembler/disassembler state machines, so this is not a hot path
// for double-completion, but the guard keeps it safe under misuse.
func (f *Future) complete(resp *Response, err error) {
	select {
	case <-f.done:
		return
	default:
	}
	f.resp, f.err = resp, err
	close(f.done)
}

// Wait blocks until the call completes, the context is cancelled, or ctx
// is already done, whichever happens first. A context cancellation here
// does not itself cancel the call; use Connection.Cancel for that.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done reports whether the call has reached a terminal state.
func (f *Future) Done() <-chan struct{} { return f.done }
