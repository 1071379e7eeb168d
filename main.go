// The main package for the cuevana-scraper executable.
package main

import (
	"github.com/charliechaser/cuevana-scraper/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
