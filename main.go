// The main package for the stac-populator executable.
package main

import (
	"github.com/jlandry/stac-populator/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
