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
	"github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"

	"github.com/chubaofs/tchannel/proto"
)

// argScheme is tagged on every span the bridge starts. The wire-protocol
// core never parses arg1 as anything but an opaque endpoint name, so
// there is exactly one scheme this layer can ever report.
const argScheme = "raw"

// Bridge implements channel.TraceHook by wrapping an opentracing.Tracer.
// It is grounded on util/tracing/opentracing.go's span lifecycle (start,
// tag, inject/extract, finish), generalized from ChubaoFS's single
// process-wide tracer to an explicit per-Connection collaborator per §9's
// "no process-wide singleton" design note. A nil Tracer (or a nil *Bridge)
// makes every method a no-op, matching §4.5's "if tracer ... is absent".
type Bridge struct {
	Tracer opentracing.Tracer
}

// StartOutbound implements channel.TraceHook's outbound half (§4.5
// start_outbound).
func (b *Bridge) StartOutbound(ctx context.Context, service, endpoint string, headers proto.Headers, tracing *proto.Tracing) (context.Context, proto.Headers, func(err error)) {
	if b == nil || b.Tracer == nil {
		return ctx, headers, noopFinish
	}

	spanOpts := []opentracing.StartSpanOption{
		ext.SpanKindRPCClient,
		opentracing.Tag{Key: "peer.service", Value: service},
		opentracing.Tag{Key: "as", Value: argScheme},
	}
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		spanOpts = append(spanOpts, opentracing.ChildOf(parent.Context()))
	}
	span := b.Tracer.StartSpan(endpoint, spanOpts...)

	if ids, ok := protocolIDsOf(span.Context()); ok && tracing != nil {
		tracing.TraceID = ids.TraceID()
		tracing.SpanID = ids.SpanID()
		tracing.ParentID = ids.ParentID()
	}

	if interceptor, ok := interceptorFrom(ctx); ok {
		if err := interceptor.InterceptOutbound(span); err != nil {
			span.LogFields(otlog.Error(err))
			span.Finish()
			return ctx, headers, noopFinish
		}
	}

	out := Strip(headers)
	if err := b.Tracer.Inject(span.Context(), opentracing.TextMap, HeaderCarrier{Headers: out}); err != nil {
		// TracingInjectFail (§7): log and proceed without injection
		// rather than failing the call over it.
		span.LogFields(otlog.Error(err))
	}

	ctx = opentracing.ContextWithSpan(ctx, span)
	return ctx, out, func(err error) {
		if err != nil {
			ext.Error.Set(span, true)
			span.LogFields(otlog.Error(err))
		}
		span.Finish()
	}
}

// StartInbound implements channel.TraceHook's inbound half (§4.5
// start_inbound).
func (b *Bridge) StartInbound(ctx context.Context, service, endpoint string, headers proto.Headers, tracing proto.Tracing) (context.Context, proto.Headers, func(err error)) {
	if b == nil || b.Tracer == nil {
		return ctx, headers, noopFinish
	}

	var parent opentracing.SpanContext
	if sc, err := b.Tracer.Extract(opentracing.TextMap, HeaderCarrier{Headers: headers}); err == nil {
		parent = sc
	} else if tracing.TraceID != 0 {
		parent = syntheticSpanContext{traceID: tracing.TraceID, spanID: tracing.SpanID, parentID: tracing.ParentID}
	}

	visible := Strip(headers)

	spanOpts := []opentracing.StartSpanOption{ext.SpanKindRPCServer}
	if cn, ok := visible["cn"]; ok {
		spanOpts = append(spanOpts, opentracing.Tag{Key: "peer.service", Value: cn})
	}
	if parent != nil {
		spanOpts = append(spanOpts, opentracing.ChildOf(parent))
	}
	span := b.Tracer.StartSpan(endpoint, spanOpts...)

	if interceptor, ok := interceptorFrom(ctx); ok {
		if err := interceptor.InterceptInbound(span); err != nil {
			span.LogFields(otlog.Error(err))
			span.Finish()
			return ctx, visible, noopFinish
		}
	}

	ctx = opentracing.ContextWithSpan(ctx, span)
	return ctx, visible, func(err error) {
		if err != nil {
			ext.Error.Set(span, true)
			span.LogFields(otlog.Error(err))
		}
		span.Finish()
	}
}

func noopFinish(error) {}
