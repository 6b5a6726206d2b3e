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
	"time"

	"github.com/spf13/cobra"

	"github.com/chubaofs/tchannel/channel"
)

const (
	cmdPingUse   = "ping"
	cmdPingShort = "Measure round-trip latency to a TChannel peer"
)

func newPingCmd() *cobra.Command {
	var addr string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   cmdPingUse,
		Short: cmdPingShort,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			conn, err := channel.Dial(ctx, addr, channel.Options{ProcessName: "tchannel-cli"})
			if err != nil {
				errout("dial %s: %v\n", addr, err)
			}
			defer conn.Close()

			rtt, err := conn.Ping(ctx)
			if err != nil {
				errout("ping %s: %v\n", addr, err)
			}
			stdout("%s\n", colorizeRTT(rtt).Sprintf("%s: %s", addr, rtt))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "peer host:port")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "dial and ping timeout")
	cmd.MarkFlagRequired("addr") //nolint:errcheck
	return cmd
}
