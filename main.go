// ./main.go
package main

import (
	"github.com/ckarabey/attendbot/cmd"
)

// main is the entry point for the attendbot CLI.
func main() {
	cmd.Execute()
}
