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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chubaofs/tchannel/channel"
	"github.com/chubaofs/tchannel/metrics"
	"github.com/chubaofs/tchannel/proto"
	"github.com/chubaofs/tchannel/tracing"
	"github.com/chubaofs/tchannel/util/config"
	"github.com/chubaofs/tchannel/util/log"

	tccommon "github.com/chubaofs/tchannel/cmd/common"
)

// peer is a runnable TChannel endpoint: an accept loop over channel.Accept
// connections, wired to the tracing bridge and the metrics collector, plus
// a small admin HTTP surface for /metrics and live connection state.
type peer struct {
	cfg      *config.PeerConfig
	logger   *log.Logger
	checksum proto.ChecksumType
	trace    *tracing.Bridge
	registry *prometheus.Registry
	metrics  *metrics.Collector

	ln       net.Listener
	debugSrv *http.Server

	mu    sync.Mutex
	conns map[*channel.Connection]struct{}

	control tccommon.Control
}

func (p *peer) Start(cfg *config.PeerConfig) error {
	return p.control.Start(p, cfg, handleStart)
}

func (p *peer) Shutdown() {
	p.control.Shutdown(p, handleShutdown)
}

func (p *peer) Sync() {
	p.control.Sync()
}

func handleStart(s tccommon.Server, cfg *config.PeerConfig) (err error) {
	p, ok := s.(*peer)
	if !ok {
		return errors.New("tchanneld: unexpected server type")
	}
	p.cfg = cfg
	p.logger = log.NewStderr(log.InfoLevel)
	p.conns = make(map[*channel.Connection]struct{})

	if p.checksum, err = proto.ParseChecksumType(cfg.ChecksumType); err != nil {
		return err
	}

	p.registry = prometheus.NewRegistry()
	p.metrics = metrics.New(p.registry)

	if cfg.TracingEnabled {
		p.trace = &tracing.Bridge{Tracer: opentracing.GlobalTracer()}
	}

	if p.ln, err = net.Listen("tcp", cfg.Listen); err != nil {
		return fmt.Errorf("tchanneld: listen %s: %w", cfg.Listen, err)
	}
	go p.acceptLoop()

	if cfg.DebugListen != "" {
		if err = p.startDebugServer(); err != nil {
			return err
		}
	}
	return nil
}

func handleShutdown(s tccommon.Server) {
	p, ok := s.(*peer)
	if !ok {
		return
	}
	if p.debugSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.debugSrv.Shutdown(ctx); err != nil {
			p.logger.Warnf("tchanneld: debug server shutdown: %v", err)
		}
	}
	p.ln.Close()

	p.mu.Lock()
	conns := make([]*channel.Connection, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (p *peer) startDebugServer() error {
	ln, err := net.Listen("tcp", p.cfg.DebugListen)
	if err != nil {
		return fmt.Errorf("tchanneld: debug listen %s: %w", p.cfg.DebugListen, err)
	}
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	router.GET("/debug/conns", p.handleDebugConns)
	p.debugSrv = &http.Server{Handler: router}
	go func() {
		if err := p.debugSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			p.logger.Warnf("tchanneld: debug server: %v", err)
		}
	}()
	return nil
}

type connInfo struct {
	PeerHost    string `json:"peer_host"`
	PeerProcess string `json:"peer_process"`
}

func (p *peer) handleDebugConns(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p.mu.Lock()
	infos := make([]connInfo, 0, len(p.conns))
	for c := range p.conns {
		host, proc, ok := c.PeerIdentity()
		if !ok {
			continue
		}
		infos = append(infos, connInfo{PeerHost: host, PeerProcess: proc})
	}
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		p.logger.Warnf("tchanneld: encode /debug/conns: %v", err)
	}
}

func (p *peer) acceptLoop() {
	for {
		nc, err := p.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			p.logger.Warnf("tchanneld: accept: %v", err)
			continue
		}
		go p.handleConn(nc)
	}
}

func (p *peer) handleConn(nc net.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectTimeout)
	defer cancel()

	conn, err := channel.Accept(ctx, nc, channel.Options{
		ProcessName:     p.cfg.ProcessName,
		DefaultChecksum: p.checksum,
		Logger:          p.logger,
		Trace:           p.trace,
		Metrics:         p.metrics,
		Handler:         channel.HandlerFunc(p.handleCall),
	})
	if err != nil {
		p.logger.Warnf("tchanneld: handshake with %s: %v", nc.RemoteAddr(), err)
		return
	}

	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	<-conn.Done()

	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
}

// handleCall is the reference peer's own service: it echoes arg2/arg3
// back to the caller, which is enough to exercise the full call path
// (fragmentation, checksums, tracing, metrics) end to end.
func (p *peer) handleCall(ctx context.Context, call *channel.Inbound) (*channel.Response, error) {
	p.logger.Debugf("tchanneld: call service=%q arg1=%q", call.Service, call.Arg1)
	return &channel.Response{Code: proto.ResponseOK, Arg2: call.Arg2, Arg3: call.Arg3}, nil
}
