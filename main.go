// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// folio is a portfolio assistant: an HTTP gateway that streams answers from
// a chain of hosted models, and a terminal client that talks to it.
package main

import (
	"fmt"
	"os"

	"github.com/jedsmith2004/folio/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
