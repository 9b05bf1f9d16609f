package main

import (
	"os"

	"github.com/k2brd/k2brd/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
