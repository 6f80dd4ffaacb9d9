// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// axtl-transport - a developer harness for the axtl serial transport
// layer: send/receive raw frames, watch live stats in a TUI, or mirror
// a port's byte stream over a WebSocket.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
