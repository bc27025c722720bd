// Command framehost runs the frame scheduler host and its tooling.
package main

import (
	"fmt"
	"os"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
