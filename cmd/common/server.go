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

// Package common gives cmd/tchanneld the teacher's Control state machine:
// a CAS-guarded standby/start/running/shutdown/stopped lifecycle any
// Server can be driven through from main.
package common

import (
	"sync"
	"sync/atomic"

	"github.com/chubaofs/tchannel/util/config"
)

const (
	StateStandby uint32 = iota
	StateStart
	StateRunning
	StateShutdown
	StateStopped
)

// Control drives a Server through its lifecycle exactly once; repeated
// Start or Shutdown calls outside the expected state are no-ops.
type Control struct {
	state uint32
	wg    sync.WaitGroup
}

// Server is anything cmd/tchanneld can run under a Control.
type Server interface {
	Start(cfg *config.PeerConfig) error
	Shutdown()
	// Sync blocks the invoking goroutine until the server shuts down.
	Sync()
}

type DoStartFunc func(s Server, cfg *config.PeerConfig) (err error)
type DoShutdownFunc func(s Server)

func (c *Control) Start(s Server, cfg *config.PeerConfig, do DoStartFunc) (err error) {
	if atomic.CompareAndSwapUint32(&c.state, StateStandby, StateStart) {
		defer func() {
			newState := StateRunning
			if err != nil {
				newState = StateStandby
			}
			atomic.StoreUint32(&c.state, newState)
		}()
		if err = do(s, cfg); err != nil {
			return
		}
		c.wg.Add(1)
	}
	return
}

func (c *Control) Shutdown(s Server, do DoShutdownFunc) {
	if atomic.CompareAndSwapUint32(&c.state, StateRunning, StateShutdown) {
		do(s)
		c.wg.Done()
		atomic.StoreUint32(&c.state, StateStopped)
	}
}

func (c *Control) Sync() {
	if atomic.LoadUint32(&c.state) == StateRunning {
		c.wg.Wait()
	}
}
