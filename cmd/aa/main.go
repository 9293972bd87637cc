// Package main provides the entry point for the aa CLI.
package main

import (
	"os"

	"github.com/randalmurphal/aa/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := cli.Execute()
	if err != nil {
		cli.PrintError(err)
	}
	return cli.ExitCode(err)
}
