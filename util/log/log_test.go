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

package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "tchannel", DebugLevel)
	require.NoError(t, err)
	l.Infof("hello %s", "world")
	l.Flush()

	data, err := os.ReadFile(filepath.Join(dir, "tchannel.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "hello world")
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "tchannel", ErrorLevel)
	require.NoError(t, err)
	l.Debugf("should not appear")
	l.Errorf("should appear")
	l.Flush()
	time.Sleep(10 * time.Millisecond)

	data, err := os.ReadFile(filepath.Join(dir, "tchannel.log"))
	require.NoError(t, err)
	require.NotContains(t, string(data), "should not appear")
	require.Contains(t, string(data), "should appear")
}
