// Command gmw is an offline-first hydration tracker.
package main

import (
	"os"

	"github.com/roach88/givemewater/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand()))
}
