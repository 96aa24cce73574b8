// Command biblio maintains a retrievable corpus of scientific articles.
package main

import (
	"os"

	"github.com/marrow-labs/biblio-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
