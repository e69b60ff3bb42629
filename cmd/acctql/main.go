// Command acctql queries and mutates account records through batched
// loaders and streams change events.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/acctql/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands report their own errors through the output formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
