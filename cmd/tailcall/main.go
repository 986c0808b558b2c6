// Command tailcall runs the gateway process and its operator subcommands
// (check, publish, drop, list, show, generate, start).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
