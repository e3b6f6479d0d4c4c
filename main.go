// The main package for the coldcase-ingest executable.
package main

import "github.com/sariahshoe/coldcase-ingest/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
