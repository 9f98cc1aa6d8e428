// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Netbus - Hayward NET Port Protocol Analyzer
//
// A CLI tool for monitoring, decoding and driving the pulse-width
// encoded protocol on the NET port of Hayward pool heat pumps.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/netbus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
