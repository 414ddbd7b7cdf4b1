// Package main provides the entry point for the vaultsearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/vaultsearch/cmd/vaultsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
