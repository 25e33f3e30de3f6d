package main

import (
	"os"

	"github.com/alessiogrespi/llmtoolkit/cmd/llmtoolkit/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
