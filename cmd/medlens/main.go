package main

import (
	"os"

	"github.com/medlens-dev/medlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
