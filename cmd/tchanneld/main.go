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

// Command tchanneld runs a standalone TChannel peer: it accepts
// connections, drives the init handshake and call multiplexer, and
// echoes every call it receives, for interoperability testing against
// real TChannel implementations.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/chubaofs/tchannel/util/config"
	"github.com/chubaofs/tchannel/util/log"
)

func main() {
	configFile := flag.String("c", "", "path to the peer's JSON config file")
	flag.Parse()

	if _, err := maxprocs.Set(maxprocs.Logger(log.LogInfof)); err != nil {
		log.LogWarnf("tchanneld: automaxprocs: %v", err)
	}

	if *configFile == "" {
		log.LogErrorf("tchanneld: -c <config file> is required")
		os.Exit(1)
	}
	cfg, err := config.LoadPeerConfig(*configFile)
	if err != nil {
		log.LogErrorf("tchanneld: %v", err)
		os.Exit(1)
	}

	p := &peer{}
	if err := p.Start(cfg); err != nil {
		log.LogErrorf("tchanneld: start: %v", err)
		os.Exit(1)
	}
	log.LogInfof("tchanneld: listening on %s", cfg.Listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.LogInfof("tchanneld: received %s, shutting down", sig)
		p.Shutdown()
	}()

	p.Sync()
}
