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

// InitBody is shared by InitRequest and InitResponse frames (§3, §4.2).
type InitBody struct {
	kind    FrameType
	Version uint16
	Headers Headers
}

// NewInitRequest builds an InitRequest body with the required headers.
func NewInitRequest(hostPort, processName string) *InitBody {
	return &InitBody{
		kind:    FrameTypeInitRequest,
		Version: CurrentVersion,
		Headers: Headers{InitHeaderHostPort: hostPort, InitHeaderProcessName: processName},
	}
}

// NewInitResponse builds an InitResponse body with the required headers.
func NewInitResponse(hostPort, processName string) *InitBody {
	return &InitBody{
		kind:    FrameTypeInitResponse,
		Version: CurrentVersion,
		Headers: Headers{InitHeaderHostPort: hostPort, InitHeaderProcessName: processName},
	}
}

func (b *InitBody) FrameType() FrameType { return b.kind }

func (b *InitBody) marshal(w *writer) error {
	w.uint16(b.Version)
	return writeInitHeaders(w, b.Headers)
}

func (b *InitBody) unmarshal(r *reader) error {
	v, err := r.uint16()
	if err != nil {
		return err
	}
	b.Version = v
	h, err := readInitHeaders(r)
	if err != nil {
		return err
	}
	b.Headers = h
	return nil
}

// HostPort returns the required host_port header, if present.
func (b *InitBody) HostPort() (string, bool) {
	v, ok := b.Headers[InitHeaderHostPort]
	return v, ok
}

// ProcessName returns the required process_name header, if present.
func (b *InitBody) ProcessName() (string, bool) {
	v, ok := b.Headers[InitHeaderProcessName]
	return v, ok
}
