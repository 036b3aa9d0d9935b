package main

import (
	"os"

	"argoya/cmd/argoya/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
