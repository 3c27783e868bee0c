package main

import (
	"os"

	"github.com/shanekizito/Thinkly/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
