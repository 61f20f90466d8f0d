package main

import (
	"os"

	"github.com/rustyeddy/levgame/cmd/levgame/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
