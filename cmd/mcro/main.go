package main

import (
	"os"

	"github.com/Gnarus-G/mcro/internal/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
