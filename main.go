// Package main is the entry point of the galvano CLI.
package main

import (
	"github.com/huangsam/galvano/cmd"
	"github.com/huangsam/galvano/internal/contract"
)

func main() {
	err := cmd.Execute()
	if cleanupErr := cmd.Cleanup(); cleanupErr != nil {
		contract.LogWarn("Cleanup failed", cleanupErr)
	}
	if err != nil {
		contract.LogFatal("Error starting CLI", err)
	}
}
