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
	"github.com/chubaofs/tchannel/proto"
)

// initState is the per-connection handshake state machine of §4.2.
type initState int

const (
	initNew initState = iota
	initAwaitResponse
	initReady
)

// handshake drives one side of §4.2's state machine. It is not
// goroutine-safe; the owning Connection's single I/O task drives it.
type handshake struct {
	state       initState
	active      bool // true for the side that sends InitRequest first
	localID     uint32
	peerHost    string
	peerProcess string
}

// newActiveHandshake begins the handshake for the dialing side: the
// caller still must send the returned InitRequest frame.
func newActiveHandshake() *handshake {
	return &handshake{state: initNew, active: true}
}

// newPassiveHandshake begins the handshake for the accepting side, which
// waits for the peer's InitRequest.
func newPassiveHandshake() *handshake {
	return &handshake{state: initNew, active: false}
}

// outboundInitRequest builds the InitRequest this side sends to start an
// active handshake, per §4.2: "sends InitRequest with version=2,
// host_port=<local>, process_name=<ident> using a freshly allocated id".
func outboundInitRequest(id uint32, hostPort, processName string) *proto.Frame {
	return &proto.Frame{ID: id, Body: proto.NewInitRequest(hostPort, processName)}
}

// onFrame feeds one received frame into the handshake. It returns a
// response frame to send (if any) and whether the handshake is fatally
// violated, in which case the caller must emit Error(fatal-protocol) and
// close the connection per §4.2's "any state" transition.
func (h *handshake) onFrame(f *proto.Frame) (reply *proto.Frame, fatal bool) {
	switch h.state {
	case initNew:
		if h.active {
			// The active side should not receive anything before it has
			// sent its own InitRequest; the caller is responsible for
			// sending first and moving to initAwaitResponse.
			return nil, true
		}
		init, ok := f.Body.(*proto.InitBody)
		if !ok || f.Type() != proto.FrameTypeInitRequest || init.Version != proto.CurrentVersion {
			return nil, true
		}
		h.peerHost, _ = init.HostPort()
		h.peerProcess, _ = init.ProcessName()
		h.state = initReady
		return nil, false

	case initAwaitResponse:
		init, ok := f.Body.(*proto.InitBody)
		if !ok || f.Type() != proto.FrameTypeInitResponse || init.Version != proto.CurrentVersion {
			return nil, true
		}
		h.peerHost, _ = init.HostPort()
		h.peerProcess, _ = init.ProcessName()
		h.state = initReady
		return nil, false

	default: // initReady
		if f.Type() == proto.FrameTypeInitRequest || f.Type() == proto.FrameTypeInitResponse {
			return nil, true
		}
		return nil, false
	}
}

// sent records that the local InitRequest has gone out, moving the
// active side into AWAIT_INIT_RES.
func (h *handshake) sent() {
	if h.active && h.state == initNew {
		h.state = initAwaitResponse
	}
}

// ready reports whether call frames may now flow (§3 "No call frames may
// flow before init handshake completes").
func (h *handshake) ready() bool { return h.state == initReady }
