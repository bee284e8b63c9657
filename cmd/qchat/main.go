package main

import (
	"os"

	"qchat/cmd/qchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
