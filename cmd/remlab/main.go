package main

import (
	"os"

	"github.com/bewley/remlab-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
