// Command pgcatalog inspects PostgreSQL catalogs.
package main

import (
	"fmt"
	"os"

	"github.com/koustreak/pgcatalog/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
