package main

import (
	"os"

	"github.com/rustyeddy/metals/cmd/metals/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
