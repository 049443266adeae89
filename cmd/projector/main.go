package main

import (
	"os"

	"github.com/carelog-systems/carelog-projector/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
