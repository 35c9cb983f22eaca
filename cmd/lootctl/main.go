// Command lootctl manages the location store from the shell. It works on
// the same storage the API server uses, so run it while the server is
// stopped or against the redis backend.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
