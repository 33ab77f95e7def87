// ============================================================================
// raftnode - Application Entry Point
// ============================================================================
//
// File: cmd/raftnode/main.go
// Purpose: Application entry point and CLI initialization
//
// Responsibilities:
//   1. Version Management - inject build info via ldflags
//   2. Panic Recovery - catch unexpected panics gracefully
//   3. CLI Setup - build and configure the Cobra command interface
//   4. Error Handling - unified command execution error handling
//
// Version Injection:
//   Variables injected at build time via -ldflags:
//   go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
//
// Usage:
//   ./raftnode --help               # Show help
//   ./raftnode --version            # Show version
//   ./raftnode run                  # Start the node
//   ./raftnode status               # View node configuration
//   ./raftnode bootstrap --out x.yaml  # Write a starter config
//
// ============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/emberkv/raftcore/internal/cli"
)

// Build-time version injection via ldflags.
var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
