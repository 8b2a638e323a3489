package main

import (
	"os"

	"keyrelay/cmd/keyctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
