package main

import (
	"os"

	"github.com/wonny/bondalloc/cmd/allocator/commands"
)

// main is the entry point for the allocator CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/allocator [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
