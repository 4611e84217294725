// Package main provides the entry point for the codeindexd CLI and MCP
// server.
package main

import (
	"os"

	"github.com/windschord/context-mcp-sub001/cmd/codeindexd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
