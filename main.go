// The main package for the goldwatch executable.
package main

import (
	"github.com/JakeFAU/goldwatch/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
