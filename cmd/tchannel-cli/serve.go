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
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chubaofs/tchannel/channel"
	"github.com/chubaofs/tchannel/proto"
)

const (
	cmdServeUse   = "serve"
	cmdServeShort = "Run a throwaway echo peer for manual interoperability testing"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   cmdServeUse,
		Short: cmdServeShort,
		Run: func(cmd *cobra.Command, args []string) {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				errout("listen %s: %v\n", addr, err)
			}
			stdout("listening on %s\n", ln.Addr())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				ln.Close()
			}()

			for {
				nc, err := ln.Accept()
				if err != nil {
					return
				}
				go serveEcho(nc)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:0", "address to listen on")
	return cmd
}

func serveEcho(nc net.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := channel.Accept(ctx, nc, channel.Options{
		ProcessName: "tchannel-cli",
		Handler:     channel.HandlerFunc(echoCall),
	})
	if err != nil {
		stdout("handshake with %s: %v\n", nc.RemoteAddr(), err)
		return
	}
	<-conn.Done()
}

func echoCall(ctx context.Context, call *channel.Inbound) (*channel.Response, error) {
	stdout("call service=%q arg1=%q\n", call.Service, call.Arg1)
	return &channel.Response{Code: proto.ResponseOK, Arg2: call.Arg2, Arg3: call.Arg3}, nil
}
