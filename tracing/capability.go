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

package tracing

import (
	"context"

	"github.com/opentracing/opentracing-go"
)

// ProtocolTraceIDs is an optional capability a tracer's SpanContext may
// implement to expose the 64-bit ids the wire protocol's tracing field
// carries (§3). Dispatch is by capability query against this interface,
// never by asserting a specific tracer's concrete SpanContext type (§9
// design note on polymorphism over tracer context).
type ProtocolTraceIDs interface {
	TraceID() uint64
	SpanID() uint64
	ParentID() uint64
}

func protocolIDsOf(sc opentracing.SpanContext) (ProtocolTraceIDs, bool) {
	if sc == nil {
		return nil, false
	}
	ids, ok := sc.(ProtocolTraceIDs)
	return ids, ok
}

// RequestSpanInterceptor is an optional capability a host attaches to a
// call's context; when present the bridge invokes InterceptOutbound or
// InterceptInbound between span creation and return (§4.5). A failure
// logs the error on the span and finishes it; the error is not returned
// to the caller, and the call goes ahead untraced.
type RequestSpanInterceptor interface {
	InterceptOutbound(span opentracing.Span) error
	InterceptInbound(span opentracing.Span) error
}

type interceptorKey struct{}

// WithInterceptor attaches interceptor to ctx for the bridge to discover
// on the next StartOutbound/StartInbound call made with that context.
func WithInterceptor(ctx context.Context, interceptor RequestSpanInterceptor) context.Context {
	return context.WithValue(ctx, interceptorKey{}, interceptor)
}

func interceptorFrom(ctx context.Context) (RequestSpanInterceptor, bool) {
	i, ok := ctx.Value(interceptorKey{}).(RequestSpanInterceptor)
	return i, ok
}

// syntheticSpanContext lets start_inbound recover a parent span from the
// protocol-level tracing field when no $tracing$ header carried one
// (§4.5 "if no header-based parent was recovered, synthesize one from
// the protocol-level tracing field"). It satisfies ProtocolTraceIDs so a
// tracer that understands that capability can still chain from it.
type syntheticSpanContext struct {
	traceID, spanID, parentID uint64
}

func (s syntheticSpanContext) ForeachBaggageItem(func(k, v string) bool) {}
func (s syntheticSpanContext) TraceID() uint64                           { return s.traceID }
func (s syntheticSpanContext) SpanID() uint64                            { return s.spanID }
func (s syntheticSpanContext) ParentID() uint64                          { return s.parentID }
