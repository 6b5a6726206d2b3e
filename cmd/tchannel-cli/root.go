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
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/chubaofs/tchannel/util/log"
)

const cmdRootShort = "TChannel Command Line Interface (CLI)"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   path.Base(os.Args[0]),
		Short: cmdRootShort,
		Args:  cobra.MinimumNArgs(0),
	}
	cmd.AddCommand(
		newPingCmd(),
		newCallCmd(),
		newServeCmd(),
	)
	return cmd
}

func stdout(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(os.Stdout, format, a...)
}

func errout(format string, a ...interface{}) {
	log.LogErrorf(format, a...)
	_, _ = fmt.Fprintf(os.Stderr, format, a...)
	log.LogFlush()
	os.Exit(1)
}
