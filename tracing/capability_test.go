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
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/require"
)

// plainSpanContext satisfies opentracing.SpanContext but not
// ProtocolTraceIDs, the common case for a tracer whose SpanContext the
// bridge doesn't know how to read protocol ids out of.
type plainSpanContext struct{}

func (plainSpanContext) ForeachBaggageItem(func(k, v string) bool) {}

func TestProtocolIDsOfDetectsCapability(t *testing.T) {
	ids, ok := protocolIDsOf(syntheticSpanContext{traceID: 1, spanID: 2, parentID: 3})
	require.True(t, ok)
	require.Equal(t, uint64(1), ids.TraceID())
	require.Equal(t, uint64(2), ids.SpanID())
	require.Equal(t, uint64(3), ids.ParentID())

	_, ok = protocolIDsOf(plainSpanContext{})
	require.False(t, ok)

	_, ok = protocolIDsOf(nil)
	require.False(t, ok)
}

type stubInterceptor struct {
	outboundErr, inboundErr error
}

func (s stubInterceptor) InterceptOutbound(opentracing.Span) error { return s.outboundErr }
func (s stubInterceptor) InterceptInbound(opentracing.Span) error  { return s.inboundErr }

func TestInterceptorFromRoundTrips(t *testing.T) {
	_, ok := interceptorFrom(context.Background())
	require.False(t, ok)

	want := stubInterceptor{outboundErr: errors.New("boom")}
	ctx := WithInterceptor(context.Background(), want)
	got, ok := interceptorFrom(ctx)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestSyntheticSpanContextIsInert(t *testing.T) {
	sc := syntheticSpanContext{traceID: 42}
	called := false
	sc.ForeachBaggageItem(func(k, v string) bool {
		called = true
		return true
	})
	require.False(t, called)
}
