// Executable hashtreectl inspects, verifies and exports the heads of hash
// tree metadata objects.
package main

import (
	"fmt"
	"os"

	"github.com/datatrails/go-datatrails-hashtree/cmd/hashtreectl/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
