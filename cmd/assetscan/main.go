// Command assetscan probes the census file endpoint for newly added
// assets and persists them to a local or S3 archive.
package main

import (
	"fmt"
	"os"

	"github.com/auraxdata/assetscan/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
