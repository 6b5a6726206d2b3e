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

// Tracing is the protocol-level trace context carried on call-request,
// call-response, and error frames (§3). It is 25 bytes on the wire:
// spanId, parentId, traceId (u64 each) followed by a u8 traceFlags.
type Tracing struct {
	SpanID     uint64
	ParentID   uint64
	TraceID    uint64
	TraceFlags uint8
}

func writeTracing(w *writer, t Tracing) {
	w.uint64(t.SpanID)
	w.uint64(t.ParentID)
	w.uint64(t.TraceID)
	w.uint8(t.TraceFlags)
}

func readTracing(r *reader) (Tracing, error) {
	var t Tracing
	var err error
	if t.SpanID, err = r.uint64(); err != nil {
		return t, err
	}
	if t.ParentID, err = r.uint64(); err != nil {
		return t, err
	}
	if t.TraceID, err = r.uint64(); err != nil {
		return t, err
	}
	if t.TraceFlags, err = r.uint8(); err != nil {
		return t, err
	}
	return t, nil
}
