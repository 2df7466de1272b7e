// Command chronoctl is the operator CLI for chronoverse datasets.
package main

import (
	"os"

	"github.com/chronoverse/chronoverse/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// go-flags already printed the error.
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
