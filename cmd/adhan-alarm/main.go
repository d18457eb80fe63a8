package main

import (
	"os"

	"adhan-alarm/internal/adapter/primary/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
