// Command replicate synchronizes catalog records between sites.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/replicate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "replicate:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
