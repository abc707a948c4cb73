// Command formsctl is the operator CLI. Run formsctl --help for commands.
package main

import (
	"fmt"
	"os"

	"github.com/sakif/formsmith/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
