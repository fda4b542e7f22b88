// Package main is the entry point for the cellexec command.
//
// All logic lives in internal/cli; main only hands over the process's
// arguments and standard streams and exits with the returned status.
package main

import (
	"os"

	"github.com/sakif/cellexec/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
