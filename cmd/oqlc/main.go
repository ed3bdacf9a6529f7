// Package main is the entry point for the oqlc CLI tool.
package main

import (
	"os"

	"github.com/roach88/oqlc/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
