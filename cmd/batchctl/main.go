// Command batchctl runs batchpulse operations against the database directly:
// ingesting files, SLA analysis, predictions, SLA imports and API keys.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(connect).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
