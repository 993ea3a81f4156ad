package main

import (
	"os"

	"github.com/armadaproject/sandboxbench/cmd/sandboxbench/cmd"
	"github.com/armadaproject/sandboxbench/internal/common"
)

// Config is handled by cmd/root.go
func main() {
	common.ConfigureLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
