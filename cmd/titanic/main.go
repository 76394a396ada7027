// Command titanic trains and evaluates the Titanic survival model.
package main

import (
	"os"

	"github.com/YuminosukeSato/titanic/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
