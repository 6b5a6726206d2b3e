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
	"errors"
	"fmt"

	"github.com/chubaofs/tchannel/proto"
)

// CallError wraps one of the terminal error kinds a call can fail with,
// carrying the proto.ErrorCode the remote (or local state machine) would
// emit on the wire for it.
type CallError struct {
	Code    proto.ErrorCode
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("tchannel: %s: %s", e.Code, e.Message)
}

func newCallError(code proto.ErrorCode, format string, args ...interface{}) *CallError {
	return &CallError{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrTimeout fails a call whose ttl elapsed before a terminal response.
	ErrTimeout = errors.New("tchannel: call timed out")
	// ErrCancelled fails a call the local caller cancelled.
	ErrCancelled = errors.New("tchannel: call cancelled")
	// ErrConnectionClosed fails all in-flight calls when the connection's
	// I/O loop exits, matching the Network error kind in §7.
	ErrConnectionClosed = errors.New("tchannel: connection closed")
	// ErrNotReady reports that the init handshake has not completed. Dial
	// and Accept return a Connection only after the handshake, so Submit
	// does not return it.
	ErrNotReady = errors.New("tchannel: connection not ready")
)
