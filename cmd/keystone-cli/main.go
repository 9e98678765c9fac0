// Command keystone-cli asks questions and manages the corpus from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/scrypster/keystone/cmd/keystone-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
