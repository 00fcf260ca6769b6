package main

import (
	"os"

	"github.com/wonny/diamond/cmd/diamond/commands"
)

// main is the entry point for the Diamond CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/diamond [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
