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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chubaofs/tchannel/proto"
)

func TestHeaderCarrierSetPrefixesKeys(t *testing.T) {
	h := proto.Headers{}
	c := HeaderCarrier{Headers: h}
	c.Set("traceid", "abc")
	require.Equal(t, "abc", h[Prefix+"traceid"])
}

func TestHeaderCarrierForeachKeyOnlyYieldsPrefixed(t *testing.T) {
	h := proto.Headers{
		Prefix + "traceid": "abc",
		"cn":               "caller",
	}
	seen := map[string]string{}
	err := HeaderCarrier{Headers: h}.ForeachKey(func(k, v string) error {
		seen[k] = v
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"traceid": "abc"}, seen)
}

func TestStripRemovesReservedHeadersOnly(t *testing.T) {
	h := proto.Headers{
		Prefix + "traceid": "abc",
		"cn":               "caller",
	}
	out := Strip(h)
	require.Equal(t, proto.Headers{"cn": "caller"}, out)
	// h itself is untouched.
	require.Contains(t, h, Prefix+"traceid")
}

func TestHasReservedHeaders(t *testing.T) {
	require.True(t, HasReservedHeaders(proto.Headers{Prefix + "traceid": "x"}))
	require.False(t, HasReservedHeaders(proto.Headers{"cn": "x"}))
	require.False(t, HasReservedHeaders(proto.Headers{}))
}
