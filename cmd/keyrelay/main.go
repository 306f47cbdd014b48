package main

import (
	"os"

	"keyrelay/cmd/keyrelay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
