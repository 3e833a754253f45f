// The main package for the chartscraper executable.
package main

import (
	"github.com/JakeFAU/chart-scraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
