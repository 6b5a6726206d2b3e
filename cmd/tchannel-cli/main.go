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

// Command tchannel-cli drives a TChannel peer manually: ping for a
// liveness/RTT check, call to submit one request and print its response,
// and serve to stand up a throwaway echo peer, all for interoperability
// testing without a full application on either end.
package main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errout("%v\n", err)
	}
}
