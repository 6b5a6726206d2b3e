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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrimCommentsPreservesQuotedHash(t *testing.T) {
	c, err := LoadConfigString(`{
		# this is a comment
		"listen": "127.0.0.1:4040", # trailing comment
		"process_name": "svc#1"
	}`)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:4040", c.GetString("listen"))
	require.Equal(t, "svc#1", c.GetString("process_name"))
}

func TestLoadPeerConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tchanneld.conf")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen": "0.0.0.0:9000"}`), 0o644))

	pc, err := LoadPeerConfig(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", pc.Listen)
	require.Equal(t, "tchanneld", pc.ProcessName)
	require.Equal(t, 10*time.Second, pc.ConnectTimeout)
	require.Equal(t, uint16(65535), pc.MaxFrameSize)
	require.False(t, pc.TracingEnabled)
	require.Equal(t, "crc32", pc.ChecksumType)
}

func TestLoadPeerConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tchanneld.conf")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen": "0.0.0.0:9000",
		"process_name": "order-service",
		"connect_timeout": "2s",
		"max_frame_size": 16384,
		"tracing_enabled": true,
		"checksum_type": "crc32c"
	}`), 0o644))

	pc, err := LoadPeerConfig(path)
	require.NoError(t, err)
	require.Equal(t, "order-service", pc.ProcessName)
	require.Equal(t, 2*time.Second, pc.ConnectTimeout)
	require.Equal(t, uint16(16384), pc.MaxFrameSize)
	require.True(t, pc.TracingEnabled)
	require.Equal(t, "crc32c", pc.ChecksumType)
}

func TestLoadPeerConfigRejectsMissingListen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tchanneld.conf")
	require.NoError(t, os.WriteFile(path, []byte(`{"process_name": "svc"}`), 0o644))

	_, err := LoadPeerConfig(path)
	require.Error(t, err)
}
