// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Command keyblacklist maintains and queries a blacklist of public key fingerprints.
package main

import (
	"errors"
	"os"

	"github.com/toeirei/keymaster-blacklist/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// Cobra has already printed the error.
		if errors.Is(err, cli.ErrBlacklisted) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
