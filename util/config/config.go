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

// Package config loads a peer's configuration from a JSON file that
// tolerates '#' line comments, the same relaxed JSON the teacher's
// util/config reads for its services.
package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
	"unicode/utf8"
)

const (
	CommentMarker rune = '#'
	QuoteMarker   rune = '"'
)

// Config holds the generic key/value view of a parsed file, mirroring
// the teacher's loose map-backed accessor style.
type Config struct {
	data map[string]interface{}
	Raw  []byte
}

func newConfig() *Config {
	return &Config{data: make(map[string]interface{})}
}

// LoadConfigFile loads config information from a JSON-with-comments file.
func LoadConfigFile(filename string) (*Config, error) {
	c := newConfig()
	if err := c.parse(filename); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", filename, err)
	}
	return c, nil
}

// LoadConfigString loads config information from a JSON-with-comments string.
func LoadConfigString(s string) (*Config, error) {
	c := newConfig()
	if err := c.parseBytes([]byte(s)); err != nil {
		return nil, fmt.Errorf("parse config string: %w", err)
	}
	return c, nil
}

func (c *Config) parse(fileName string) error {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}
	return c.parseBytes(raw)
}

func (c *Config) parseBytes(raw []byte) error {
	jsonBytes := trimComments(raw)
	c.Raw = jsonBytes
	return json.Unmarshal(jsonBytes, &c.data)
}

func trimComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		out = append(out, trimLineComment(scanner.Bytes())...)
	}
	return out
}

func trimLineComment(line []byte) []byte {
	if len(line) == 0 {
		return line
	}
	out := make([]byte, 0, len(line))
	quotes := 0
loop:
	for {
		r, size := utf8.DecodeRune(line)
		if size == 0 {
			break
		}
		switch r {
		case CommentMarker:
			if quotes%2 == 0 {
				break loop
			}
		case QuoteMarker:
			quotes++
		}
		out = append(out, line[:size]...)
		line = line[size:]
	}
	out = append(out, '\n')
	return out
}

// GetString returns a string for the config key, "" if absent or of the wrong type.
func (c *Config) GetString(key string) string {
	if v, ok := c.data[key].(string); ok {
		return v
	}
	return ""
}

// GetStringWithDefault returns the string at key, or def if absent.
func (c *Config) GetStringWithDefault(key, def string) string {
	if v, present := c.data[key]; present {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetBool returns a bool value for the config key.
func (c *Config) GetBool(key string) bool {
	x, present := c.data[key]
	if !present {
		return false
	}
	if b, ok := x.(bool); ok {
		return b
	}
	if s, ok := x.(string); ok {
		return s == "true"
	}
	return false
}

// GetBoolWithDefault returns a bool value for key, or def when absent.
func (c *Config) GetBoolWithDefault(key string, def bool) bool {
	if _, present := c.data[key]; !present {
		return def
	}
	return c.GetBool(key)
}

// GetInt64 returns an int64 value for the config key.
func (c *Config) GetInt64(key string) int64 {
	x, present := c.data[key]
	if !present {
		return 0
	}
	switch v := x.(type) {
	case float64:
		return int64(v)
	case string:
		if r, err := strconv.ParseInt(v, 10, 64); err == nil {
			return r
		}
	}
	return 0
}

// GetInt64WithDefault returns an int64 value for key, or def when absent.
func (c *Config) GetInt64WithDefault(key string, def int64) int64 {
	if _, present := c.data[key]; !present {
		return def
	}
	return c.GetInt64(key)
}

// GetDurationWithDefault parses key as a Go duration string (e.g. "30s"),
// falling back to def when absent or unparsable.
func (c *Config) GetDurationWithDefault(key string, def time.Duration) time.Duration {
	s := c.GetString(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// PeerConfig is the typed configuration a tchanneld process loads at
// startup: listen address, process identity, handshake timeout, frame
// size and checksum settings, tracing and the debug listener.
type PeerConfig struct {
	// Listen is the host:port the peer accepts connections on.
	Listen string `json:"listen"`
	// ProcessName is advertised in the init handshake's "process_name" header.
	ProcessName string `json:"process_name"`
	// ConnectTimeout bounds the init handshake of each accepted connection.
	ConnectTimeout time.Duration `json:"-"`
	// MaxFrameSize is parsed and must be nonzero, but it is not applied:
	// frames are bounded only by the wire protocol's 65535-byte limit.
	MaxFrameSize uint16 `json:"-"`
	// TracingEnabled turns on the opentracing bridge for outbound and
	// inbound calls; when false, spans are not started or injected.
	TracingEnabled bool `json:"tracing_enabled"`
	// ChecksumType is the checksum algorithm this peer uses for the
	// responses it sends and for calls it originates without an explicit
	// one. "none" results in crc32, since the channel package treats an
	// unset (none) default as crc32.
	ChecksumType string `json:"checksum_type"`
	// DebugListen is the host:port the admin HTTP surface (metrics,
	// connection listing) binds to. Empty disables the debug surface.
	DebugListen string `json:"debug_listen"`
}

// LoadPeerConfig reads and validates a peer's configuration file.
func LoadPeerConfig(filename string) (*PeerConfig, error) {
	c, err := LoadConfigFile(filename)
	if err != nil {
		return nil, err
	}
	return peerConfigFromRaw(c)
}

func peerConfigFromRaw(c *Config) (*PeerConfig, error) {
	pc := &PeerConfig{
		Listen:         c.GetString("listen"),
		ProcessName:    c.GetStringWithDefault("process_name", "tchanneld"),
		ConnectTimeout: c.GetDurationWithDefault("connect_timeout", 10*time.Second),
		MaxFrameSize:   uint16(c.GetInt64WithDefault("max_frame_size", 65535)),
		TracingEnabled: c.GetBoolWithDefault("tracing_enabled", false),
		ChecksumType:   c.GetStringWithDefault("checksum_type", "crc32"),
		DebugListen:    c.GetStringWithDefault("debug_listen", ""),
	}
	if pc.Listen == "" {
		return nil, fmt.Errorf("illegal config: %q", "listen")
	}
	if pc.MaxFrameSize == 0 {
		return nil, fmt.Errorf("illegal config: %q", "max_frame_size")
	}
	return pc, nil
}
