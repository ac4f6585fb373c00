package main

import (
	"os"

	"github.com/prophetable/prophetable/cmd/prophetable/commands"
)

// main is the entry point for the Prophetable CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
