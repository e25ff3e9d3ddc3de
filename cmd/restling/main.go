package main

import (
	"io"
	"os"

	"github.com/amdevit/restling/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit status.
func run(args []string, stdout, stderr io.Writer) int {
	if err := cli.Execute(args, stdout, stderr); err != nil {
		return 1
	}
	return 0
}
