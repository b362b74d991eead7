// Package main provides the entry point for the leaseindex CLI.
package main

import (
	"os"

	"github.com/medleycre/leaseindex/cmd/leaseindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
