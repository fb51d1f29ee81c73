package main

import (
	"os"

	"github.com/lugondev/go-anvil/cmd/anvil/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
