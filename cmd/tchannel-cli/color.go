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
	"time"

	"github.com/fatih/color"
)

var (
	colorGood = color.New(color.FgGreen)
	colorWarn = color.New(color.FgYellow)
	colorBad  = color.New(color.FgRed)
)

// colorizeRTT buckets a ping round trip the way an operator would read
// it at a glance: sub-10ms is healthy, sub-100ms is notable, beyond that
// is worth investigating.
func colorizeRTT(d time.Duration) *color.Color {
	switch {
	case d < 10*time.Millisecond:
		return colorGood
	case d < 100*time.Millisecond:
		return colorWarn
	default:
		return colorBad
	}
}
