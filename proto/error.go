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

// ErrorBody is the body of an Error frame (§3).
type ErrorBody struct {
	Code    ErrorCode
	Tracing Tracing
	Message string
}

// NewErrorBody builds an Error frame body.
func NewErrorBody(code ErrorCode, tracing Tracing, message string) *ErrorBody {
	return &ErrorBody{Code: code, Tracing: tracing, Message: message}
}

func (b *ErrorBody) FrameType() FrameType { return FrameTypeError }

func (b *ErrorBody) marshal(w *writer) error {
	w.uint8(uint8(b.Code))
	writeTracing(w, b.Tracing)
	return w.str16(b.Message)
}

func (b *ErrorBody) unmarshal(r *reader) error {
	c, err := r.uint8()
	if err != nil {
		return err
	}
	b.Code = ErrorCode(c)
	if b.Tracing, err = readTracing(r); err != nil {
		return err
	}
	if b.Message, err = r.str16(); err != nil {
		return err
	}
	return nil
}
