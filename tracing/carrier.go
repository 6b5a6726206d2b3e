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

// Package tracing implements the §4.5 tracing bridge: an opentracing
// collaborator that injects/extracts span context across a call and maps
// it onto the protocol-level tracing field, isolating tracer state behind
// the reserved $tracing$ header prefix (§6).
package tracing

import (
	"strings"

	"github.com/chubaofs/tchannel/proto"
)

// Prefix marks every header key the bridge owns (§6); no header with this
// prefix may reach a user handler or a user-supplied outbound header map.
const Prefix = proto.ReservedTracingHeaderPrefix

// HeaderCarrier adapts a proto.Headers map to opentracing's TextMapWriter/
// TextMapReader, grounded on util/tracing/opentracing.go's use of
// tracer.Inject/Extract against a plain carrier, narrowed here to prefix
// every key it writes and only surface prefixed keys when read.
type HeaderCarrier struct {
	Headers proto.Headers
}

// Set implements opentracing.TextMapWriter.
func (c HeaderCarrier) Set(key, val string) {
	c.Headers[Prefix+key] = val
}

// ForeachKey implements opentracing.TextMapReader.
func (c HeaderCarrier) ForeachKey(handler func(key, val string) error) error {
	for k, v := range c.Headers {
		if !strings.HasPrefix(k, Prefix) {
			continue
		}
		if err := handler(strings.TrimPrefix(k, Prefix), v); err != nil {
			return err
		}
	}
	return nil
}

// Strip returns a copy of h with every $tracing$-prefixed key removed:
// the header map a handler or caller is allowed to see (§6, §8 "Tracing
// header isolation").
func Strip(h proto.Headers) proto.Headers {
	out := make(proto.Headers, len(h))
	for k, v := range h {
		if strings.HasPrefix(k, Prefix) {
			continue
		}
		out[k] = v
	}
	return out
}

// HasReservedHeaders reports whether h carries any $tracing$-prefixed
// key; outbound callers must not be allowed to supply these directly
// (§6).
func HasReservedHeaders(h proto.Headers) bool {
	for k := range h {
		if strings.HasPrefix(k, Prefix) {
			return true
		}
	}
	return false
}
