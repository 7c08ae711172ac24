// ABOUTME: Main entry point for the finassist MCP server with stdio transport
// ABOUTME: Wires services from the environment and serves every MCP tool
package main

import (
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/finassist/internal/app"
	"github.com/harper/finassist/internal/config"
	"github.com/harper/finassist/internal/logging"
)

func main() {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	cfg, err := config.LoadFile(os.Getenv("FINASSIST_CONFIG"))
	if err != nil {
		logging.New(os.Stderr, "info").Fatal("invalid configuration", "err", err)
	}

	// stdout carries the MCP protocol, so logs go to stderr
	logger := logging.New(os.Stderr, cfg.LogLevel)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", "err", err)
	}

	server := mcpserver.NewMCPServer("finassist", "0.1.0")
	a.RegisterTools(server)

	logger.Info("finassist MCP server starting on stdio")
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
