package main

import (
	"os"

	"github.com/stbedoya/sqlite-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
