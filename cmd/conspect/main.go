// Command conspect is the CLI for the conversion daemon: submit links, list
// tasks, inspect results, and manage configuration.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
