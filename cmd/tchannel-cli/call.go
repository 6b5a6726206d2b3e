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
	"github.com/chubaofs/tchannel/proto"
)

const (
	cmdCallUse   = "call"
	cmdCallShort = "Submit one call to a TChannel peer and print the response"
)

func newCallCmd() *cobra.Command {
	var addr, service, endpoint, arg2, arg3 string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   cmdCallUse,
		Short: cmdCallShort,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			conn, err := channel.Dial(ctx, addr, channel.Options{ProcessName: "tchannel-cli"})
			if err != nil {
				errout("dial %s: %v\n", addr, err)
			}
			defer conn.Close()

			future, err := conn.Submit(ctx, service, proto.Headers{}, []byte(endpoint), []byte(arg2), []byte(arg3), channel.CallOptions{TTL: timeout})
			if err != nil {
				errout("submit: %v\n", err)
			}

			resp, err := future.Wait(ctx)
			if err != nil {
				errout("call %s/%s: %v\n", service, endpoint, err)
			}
			if resp.Code != proto.ResponseOK {
				stdout("%s\n", colorBad.Sprintf("application error: arg2=%q arg3=%q", resp.Arg2, resp.Arg3))
				return
			}
			stdout("%s\n", colorGood.Sprintf("arg2=%q arg3=%q", resp.Arg2, resp.Arg3))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "peer host:port")
	cmd.Flags().StringVar(&service, "service", "", "target service name")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "arg1: the endpoint name")
	cmd.Flags().StringVar(&arg2, "arg2", "", "arg2 payload")
	cmd.Flags().StringVar(&arg3, "arg3", "", "arg3 payload")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "call TTL and dial timeout")
	cmd.MarkFlagRequired("addr")     //nolint:errcheck
	cmd.MarkFlagRequired("service")  //nolint:errcheck
	cmd.MarkFlagRequired("endpoint") //nolint:errcheck
	return cmd
}
