// fingraph scrapes financial tables, normalizes them and builds the company
// co-occurrence graph used for graph learning.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
